package main

import "os"

const passwordEnv = "ODOO_PASSWORD"

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
