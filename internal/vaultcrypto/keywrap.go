package vaultcrypto

// Обёртка ключа ключом (envelope encryption): AES-256-GCM без KDF,
// kek — уже готовый 256-битный ключ. Используется в двух местах:
// ключ комнаты под мастер-ключом участника и мастер-ключ под корневым
// секретом процесса.

// WrapKey шифрует plainKey под kek. Возвращает шифртекст, nonce и тег.
func WrapKey(plainKey, kek []byte) (ct, nonce, tag []byte, err error) {
	return sealGCM(plainKey, kek)
}

// UnwrapKey обращает WrapKey. Несошедшийся тег — ErrAuthenticationFailed.
func UnwrapKey(ct, nonce, tag, kek []byte) ([]byte, error) {
	return openGCM(ct, nonce, tag, kek)
}
