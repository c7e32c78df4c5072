package packet

// Reason identifies a disconnect message by key plus named placeholders. Keys
// are stable identifiers for the localization layer, never display text.
type Reason struct {
	Key          string
	Placeholders map[string]string
}

// Disconnect reason keys emitted by the engine.
const (
	ReasonNicknameConnected   = "accounts.nickname_already_connected"
	ReasonMaximumPerIP        = "accounts.maximum_connected_per_ip"
	ReasonNicknameCase        = "accounts.nickname_case_sensitive"
	ReasonBlockedVersion      = "whitelist.blocked_version"
	ReasonCrackedNotAllowed   = "whitelist.cracked_users_not_allowed"
	ReasonAccountVerified     = "premium_authentication.account_verified"
	ReasonPremiumRequired     = "premium_authentication.premium_account_required"
	ReasonServersUnavailable  = "premium_authentication.servers_unavailable"
	ReasonAuthenticationError = "authentication_error"
)

// NewReason builds a reason from a key and alternating placeholder name/value
// pairs.
func NewReason(key string, pairs ...string) Reason {
	r := Reason{Key: key}
	if len(pairs) > 0 {
		r.Placeholders = make(map[string]string, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			r.Placeholders[pairs[i]] = pairs[i+1]
		}
	}
	return r
}

func (r Reason) String() string {
	return r.Key
}
