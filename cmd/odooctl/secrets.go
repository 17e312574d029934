package main

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const keyringService = "odooctl"

// secretStore is the subset of keyring.Keyring the CLI uses.
type secretStore interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
}

func openKeyring() (secretStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              keyringService,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// resolvePassword picks the first of: the --password flag, $ODOO_PASSWORD,
// the keyring entry for key. Missing everywhere yields an empty password.
func resolvePassword(flagValue, key string, open func() (secretStore, error)) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := getEnvOrDefault(passwordEnv, ""); env != "" {
		return env, nil
	}

	store, err := open()
	if err != nil {
		return "", err
	}
	item, err := store.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading password from keyring: %w", err)
	}
	return string(item.Data), nil
}

func storePassword(store secretStore, key, password string) error {
	return store.Set(keyring.Item{
		Key:         key,
		Data:        []byte(password),
		Label:       "odooctl " + key,
		Description: "Odoo password",
	})
}
