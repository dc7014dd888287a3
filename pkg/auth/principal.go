package auth

const (
	RoleAdmin = "admin"
	RoleSDR   = "sdr"
)

// PrincipalKind discriminates the three caller identities the API
// accepts: an admin, an SDR, or the desktop sender authenticating with
// the shared service token.
type PrincipalKind string

const (
	KindAdmin   PrincipalKind = "admin"
	KindSDR     PrincipalKind = "sdr"
	KindService PrincipalKind = "service"
)

// Principal is the resolved caller identity. It is set once by the auth
// middleware; handlers never inspect tokens themselves.
type Principal struct {
	Kind PrincipalKind
	// UserID and Email are set for human callers (admin/sdr), empty for
	// the sender service.
	UserID string
	Email  string
}

func AdminPrincipal(userID, email string) Principal {
	return Principal{Kind: KindAdmin, UserID: userID, Email: email}
}

func SDRPrincipal(userID, email string) Principal {
	return Principal{Kind: KindSDR, UserID: userID, Email: email}
}

func ServicePrincipal() Principal {
	return Principal{Kind: KindService}
}

// PrincipalFromClaims maps JWT role claims onto a Principal. Unknown
// roles resolve to SDR, the least privileged human identity.
func PrincipalFromClaims(claims *TokenClaims) Principal {
	if claims.Role == RoleAdmin {
		return AdminPrincipal(claims.UserID, claims.Email)
	}
	return SDRPrincipal(claims.UserID, claims.Email)
}

func (p Principal) IsAdmin() bool {
	return p.Kind == KindAdmin
}

func (p Principal) IsService() bool {
	return p.Kind == KindService
}

// CanActFor reports whether the principal may operate on resources
// scoped to sdrID. Admin and the sender service see every scope; an SDR
// only their own.
func (p Principal) CanActFor(sdrID string) bool {
	switch p.Kind {
	case KindAdmin, KindService:
		return true
	case KindSDR:
		return p.UserID == sdrID
	}
	return false
}
