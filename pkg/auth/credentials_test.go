package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Name:        "research",
		BearerToken: "AAAAAAAAAAAAAAAAAAAAAtoken1234",
	}

	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("research")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.BearerToken != account.BearerToken {
		t.Errorf("BearerToken mismatch: got %s, want %s", retrieved.BearerToken, account.BearerToken)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	if err := manager.Delete("research"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("research"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
	if err := manager.Delete("research"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound deleting twice, got %v", err)
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Account{BearerToken: "x"}); err == nil {
		t.Error("Expected error for missing name")
	}
	if err := manager.Store(&Account{Name: "a"}); err == nil {
		t.Error("Expected error for missing token")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("locked")
	fallback := NewMockStore()
	manager := NewManagerWithStores(broken, fallback)

	if err := manager.Store(&Account{Name: "a", BearerToken: "token"}); err != nil {
		t.Fatalf("Expected fallback store to accept account: %v", err)
	}
	if !fallback.Exists("a") {
		t.Error("Expected account in fallback store")
	}

	fallback.StoreError = errors.New("full")
	err := manager.Store(&Account{Name: "b", BearerToken: "token"})
	if err == nil || !strings.Contains(err.Error(), "full") {
		t.Errorf("Expected last store error, got %v", err)
	}
}

func TestRetrieveDefault(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	manager, store := NewMockManager()
	if _, err := manager.RetrieveDefault(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	store.Store(&Account{Name: "older", BearerToken: "t1", LastModified: time.Now().Add(-time.Hour)})
	store.Store(&Account{Name: "newer", BearerToken: "t2", LastModified: time.Now()})

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if account.Name != "newer" {
		t.Errorf("Expected most recent account, got %s", account.Name)
	}

	store.Store(&Account{Name: DefaultAccount, BearerToken: "t0", LastModified: time.Now().Add(-48 * time.Hour)})
	account, _ = manager.RetrieveDefault()
	if account.Name != DefaultAccount {
		t.Errorf("Expected default account to win, got %s", account.Name)
	}

	t.Setenv(TokenEnvVar, "from-env")
	withEnv := NewManagerWithStores(store, NewEnvironmentStore())
	account, _ = withEnv.RetrieveDefault()
	if account.BearerToken != "from-env" {
		t.Errorf("Expected environment token to win, got %s", account.BearerToken)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Name: "a", BearerToken: "AAAA1234567890ZZZZ"}
	sanitized := SanitizeAccount(account)

	if sanitized.BearerToken != "AAAA...ZZZZ" {
		t.Errorf("Unexpected mask %q", sanitized.BearerToken)
	}
	if sanitized.Name != "a" {
		t.Error("Name should not be masked")
	}
	if SanitizeAccount(&Account{BearerToken: "short"}).BearerToken != "********" {
		t.Error("Short tokens should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("Expected nil for nil account")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "credentials.enc")
	t.Setenv(PassphraseEnvVar, "test_passphrase_123")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := &Account{Name: "encrypted", BearerToken: "secret-bearer-value"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.BearerToken != account.BearerToken {
		t.Errorf("BearerToken mismatch after encryption/decryption")
	}

	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(fileContent, []byte("secret-bearer-value")) {
		t.Error("File contains plaintext token")
	}

	// a different passphrase cannot read it
	t.Setenv(PassphraseEnvVar, "another")
	other, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("encrypted"); err == nil {
		t.Error("Expected decryption to fail with the wrong passphrase")
	}

	if err := store.Delete("encrypted"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Error("Expected file removed with the last account")
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Name: "a", BearerToken: "tok"}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); err != nil {
		t.Fatalf("Expected generated passphrase file: %v", err)
	}

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Exists("a") {
		t.Error("Expected reopened store to read the account")
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnvVar, "")
	if _, err := store.Retrieve(""); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if accounts, _ := store.List(); len(accounts) != 0 {
		t.Errorf("Expected no accounts, got %d", len(accounts))
	}

	t.Setenv(TokenEnvVar, "env_token")
	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.BearerToken != "env_token" || account.Name != "env" {
		t.Errorf("Unexpected account %+v", account)
	}
	if !store.Exists("") {
		t.Error("Expected token to exist")
	}

	if err := store.Store(&Account{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if err := store.Delete("env"); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable deleting from environment store")
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Failed to create keyring store: %v", err)
	}

	for i, name := range []string{"b", "a"} {
		if err := store.Store(&Account{Name: name, BearerToken: fmt.Sprintf("token-%d", i)}); err != nil {
			t.Fatalf("Failed to store %s: %v", name, err)
		}
	}
	// storing again must not duplicate the index entry
	if err := store.Store(&Account{Name: "a", BearerToken: "token-new"}); err != nil {
		t.Fatal(err)
	}

	accounts, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[0].Name != "a" || accounts[1].Name != "b" {
		t.Fatalf("Unexpected accounts %+v", accounts)
	}
	if accounts[0].BearerToken != "token-new" {
		t.Errorf("Expected updated token, got %s", accounts[0].BearerToken)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if store.Exists("a") {
		t.Error("Expected a to be deleted")
	}
	if err := store.Delete("a"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	accounts, _ = store.List()
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account left, got %d", len(accounts))
	}
}

func TestKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	defer keyring.MockInit()

	if _, err := NewKeyringStore(); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = fmt.Errorf("injected error")

	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}

	manager := NewManagerWithStores(store)
	accounts, err := manager.List()
	if err != nil || len(accounts) != 0 {
		t.Errorf("Manager should skip failing stores, got %v %v", accounts, err)
	}
}

func TestShowTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowTokenGuide(&buf)
	if !strings.Contains(buf.String(), TokenEnvVar) {
		t.Error("Guide should mention the environment variable")
	}
}
