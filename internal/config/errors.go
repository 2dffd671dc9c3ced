package config

import "fmt"

func errMissing(key string) error {
	return fmt.Errorf("config: %s is required", key)
}

func errInvalid(key, reason string) error {
	return fmt.Errorf("config: %s %s", key, reason)
}
