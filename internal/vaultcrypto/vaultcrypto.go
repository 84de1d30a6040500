// Package vaultcrypto реализует шифрование содержимого хранилища:
// вывод ключа из парольной фразы (PBKDF2) и три взаимозаменяемых
// алгоритма — AES-256-GCM, AES-256-CBC и ChaCha20-Poly1305.
//
// GCM и ChaCha20 аутентифицированы: подмена шифртекста обнаруживается
// на расшифровке. CBC тега не несёт — целостность для него обеспечивает
// только отдельная проверка SHA-256 содержимого (см. hash.go), поэтому
// испорченный CBC-шифртекст может молча расшифроваться в мусор.
package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// Имена алгоритмов — закрытое множество, персистится вместе с файлом.
const (
	AlgAESGCM   = "AES-GCM"
	AlgAESCBC   = "AES-CBC"
	AlgChaCha20 = "ChaCha20"
)

const (
	// Параметры PBKDF2-HMAC-SHA256: рекомендация OWASP по числу итераций.
	kdfIterations = 600_000
	keyLen        = 32
	saltLen       = 32

	nonceLenGCM    = 12
	ivLenCBC       = 16
	nonceLenChaCha = chacha20poly1305.NonceSize
	tagLen         = 16
)

var (
	// ErrUnsupportedAlgorithm — имя алгоритма вне закрытого множества.
	ErrUnsupportedAlgorithm = errors.New("vaultcrypto: unsupported algorithm")
	// ErrAuthenticationFailed — тег не сошёлся: неверная фраза или подмена.
	ErrAuthenticationFailed = errors.New("vaultcrypto: authentication failed")
	// ErrCiphertextCorrupted — структурно негодный вход (длина, паддинг).
	ErrCiphertextCorrupted = errors.New("vaultcrypto: ciphertext corrupted")
)

// Envelope — четвёрка, которую сервер хранит рядом с шифртекстом.
// Tag == nil для AES-CBC.
type Envelope struct {
	Ciphertext []byte
	Salt       []byte
	NonceOrIV  []byte
	Tag        []byte
}

// SupportedAlgorithm — входит ли имя в закрытое множество.
func SupportedAlgorithm(alg string) bool {
	switch alg {
	case AlgAESGCM, AlgAESCBC, AlgChaCha20:
		return true
	}
	return false
}

// GenerateSalt возвращает свежую 256-битную соль.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey растягивает парольную фразу с солью в 256-битный ключ.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keyLen, sha256.New)
}

// Encrypt шифрует plaintext выбранным алгоритмом под ключом,
// выведенным из passphrase и свежей соли.
func Encrypt(plaintext []byte, passphrase string, alg string) (*Envelope, error) {
	if !SupportedAlgorithm(alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	key := DeriveKey(passphrase, salt)

	switch alg {
	case AlgAESGCM:
		ct, nonce, tag, err := sealGCM(plaintext, key)
		if err != nil {
			return nil, err
		}
		return &Envelope{Ciphertext: ct, Salt: salt, NonceOrIV: nonce, Tag: tag}, nil
	case AlgChaCha20:
		ct, nonce, tag, err := sealChaCha(plaintext, key)
		if err != nil {
			return nil, err
		}
		return &Envelope{Ciphertext: ct, Salt: salt, NonceOrIV: nonce, Tag: tag}, nil
	default: // AlgAESCBC
		ct, iv, err := encryptCBC(plaintext, key)
		if err != nil {
			return nil, err
		}
		return &Envelope{Ciphertext: ct, Salt: salt, NonceOrIV: iv}, nil
	}
}

// Decrypt обращает Encrypt: по конверту и исходной фразе возвращает
// открытый текст либо ошибку с различимым видом.
func Decrypt(env *Envelope, passphrase string, alg string) ([]byte, error) {
	if !SupportedAlgorithm(alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	key := DeriveKey(passphrase, env.Salt)

	switch alg {
	case AlgAESGCM:
		return openGCM(env.Ciphertext, env.NonceOrIV, env.Tag, key)
	case AlgChaCha20:
		return openChaCha(env.Ciphertext, env.NonceOrIV, env.Tag, key)
	default:
		return decryptCBC(env.Ciphertext, env.NonceOrIV, key)
	}
}

// --- AES-256-GCM ---

func sealGCM(plaintext, key []byte) (ct, nonce, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, err
	}
	nonce = make([]byte, nonceLenGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	// Seal дописывает 16-байтный тег в хвост; храним его отдельным полем.
	return sealed[:len(sealed)-tagLen], nonce, sealed[len(sealed)-tagLen:], nil
}

func openGCM(ct, nonce, tag, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() || len(tag) != tagLen {
		return nil, ErrCiphertextCorrupted
	}
	plaintext, err := gcm.Open(nil, nonce, append(append([]byte{}, ct...), tag...), nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// --- ChaCha20-Poly1305 ---

func sealChaCha(plaintext, key []byte) (ct, nonce, tag []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, nil, err
	}
	nonce = make([]byte, nonceLenChaCha)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, nil, err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return sealed[:len(sealed)-tagLen], nonce, sealed[len(sealed)-tagLen:], nil
}

func openChaCha(ct, nonce, tag, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != nonceLenChaCha || len(tag) != tagLen {
		return nil, ErrCiphertextCorrupted
	}
	plaintext, err := aead.Open(nil, nonce, append(append([]byte{}, ct...), tag...), nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// --- AES-256-CBC с PKCS#7 ---

func encryptCBC(plaintext, key []byte) (ct, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, ivLenCBC)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	padded := padPKCS7(plaintext, aes.BlockSize)
	ct = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return ct, iv, nil
}

func decryptCBC(ct, iv, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != ivLenCBC || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, ErrCiphertextCorrupted
	}
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)
	return unpadPKCS7(padded, aes.BlockSize)
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrCiphertextCorrupted
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrCiphertextCorrupted
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrCiphertextCorrupted
		}
	}
	return data[:len(data)-n], nil
}
