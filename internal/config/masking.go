package config

import (
	"strings"
)

// maskSecret masks a secret, keeping only the first and last 4 characters
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	// Too short to partially reveal
	if len(secret) < 8 {
		return "***"
	}

	prefix := secret[:4]
	suffix := secret[len(secret)-4:]

	masked := strings.Repeat("*", len(secret)-8)

	return prefix + masked + suffix
}

// MaskTelegramToken masks a Telegram token for display in errors and logs.
// The bot ID stays visible for diagnostics.
func MaskTelegramToken(token string) string {
	if token == "" {
		return ""
	}

	// Telegram tokens have the form <bot_id>:<token>
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return maskSecret(token)
	}

	return parts[0] + ":" + maskSecret(parts[1])
}
