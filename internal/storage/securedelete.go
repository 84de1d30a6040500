package storage

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

// DefaultDeletePasses — минимум проходов перезаписи перед unlink.
const DefaultDeletePasses = 3

// SecureDelete затирает файл перед удалением: обычный unlink лишь убирает
// запись каталога, данные остаются на носителе до перезаписи.
//
// Проходы: 1 — случайные байты; 2 — побитовое дополнение свежей случайной
// заливки, так что каждая позиция гарантированно отличается от прохода 1;
// 3 и далее — снова случайные байты. После каждого прохода — Sync, чтобы
// данные дошли до носителя, а не остались в страничном кеше.
//
// Возвращает false, если файла не было (повторный вызов — no-op без ошибки).
func SecureDelete(path string, passes int) (bool, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("secure delete stat: %w", err)
	}
	if passes < DefaultDeletePasses {
		passes = DefaultDeletePasses
	}
	size := fi.Size()

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false, fmt.Errorf("secure delete open: %w", err)
	}

	for pass := 0; pass < passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return false, fmt.Errorf("secure delete seek: %w", err)
		}

		fill := make([]byte, size)
		if _, err := io.ReadFull(rand.Reader, fill); err != nil {
			f.Close()
			return false, fmt.Errorf("secure delete rand: %w", err)
		}
		if pass == 1 {
			for i := range fill {
				fill[i] = ^fill[i]
			}
		}

		if _, err := f.Write(fill); err != nil {
			f.Close()
			return false, fmt.Errorf("secure delete pass %d: %w", pass+1, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return false, fmt.Errorf("secure delete sync: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return false, fmt.Errorf("secure delete close: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("secure delete remove: %w", err)
	}
	return true, nil
}
