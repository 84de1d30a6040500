// Package storage — хранилище зашифрованного контента. Ядро видит только
// непрозрачные byte-блобы по строковым путям; внутрь содержимого оно
// не заглядывает.
package storage

// ContentStore — минимальный контракт контент-хранилища.
// Put возвращает путь, по которому блоб можно прочитать или удалить.
type ContentStore interface {
	Put(name string, data []byte) (path string, err error)
	Get(path string) ([]byte, error)
	// Delete затирает блоб перед удалением (см. SecureDelete).
	// false — блоба уже не было (идемпотентный no-op).
	Delete(path string) (bool, error)
	// Copy дублирует блоб под новым именем (снимки версий).
	Copy(srcPath, dstName string) (path string, err error)
	Size(path string) (int64, bool)
}
