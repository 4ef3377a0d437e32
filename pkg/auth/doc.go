// Package auth stores app-only bearer tokens under account names.
//
// Tokens are kept in the first available backend: the system keyring,
// an encrypted file in the user config directory (AES-GCM, PBKDF2 key,
// passphrase from TWSCRAPE_PASSPHRASE or a generated .passphrase file),
// or read-only from TWSCRAPE_BEARER_TOKEN.
package auth
