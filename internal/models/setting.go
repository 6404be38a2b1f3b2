package models

// Recognized setting keys.
const (
	SettingCurrentProfileID     = "current_profile_id"
	SettingCurrencyCode         = "currency_code"
	SettingHideCents            = "hide_cents"
	SettingSchemaVersion        = "schema_version"
	SettingAuthInstallationSalt = "auth_installation_salt"
	SettingAuthUnlockSecret     = "auth_unlock_secret"
)

// Setting is a process-wide key/value pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
