package security

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// totpIssuer names the service in authenticator apps.
const totpIssuer = "AccountGuard"

// GenerateTOTPSecret creates a new TOTP secret and provisioning URL.
func GenerateTOTPSecret(account string) (secret string, url string, err error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return "", "", fmt.Errorf("security: totp: empty account")
	}
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account,
	})
	if errGenerate != nil {
		return "", "", fmt.Errorf("security: totp generate: %w", errGenerate)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTPCode checks a one-time code against the stored secret.
func ValidateTOTPCode(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
