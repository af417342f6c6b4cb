package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PartyType distinguishes the two account kinds.
type PartyType string

const (
	PartyMerchant PartyType = "merchant"
	PartyUser     PartyType = "user"
)

// partyIDBytes random bytes are hex-encoded after the two-letter prefix.
const partyIDBytes = 3

var (
	pinRe   = regexp.MustCompile(`^[0-9]{4,6}$`)
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)
)

// Valid reports whether p is a known party type.
func (p PartyType) Valid() bool {
	return p == PartyMerchant || p == PartyUser
}

// IDPrefix returns the identifier prefix for the party type.
func (p PartyType) IDPrefix() string {
	if p == PartyMerchant {
		return "MR"
	}
	return "UR"
}

// NewPartyID generates a prefixed identifier such as MR3FA9C1.
// Collisions are resolved by the caller retrying on a unique violation.
func NewPartyID(p PartyType) (string, error) {
	b := make([]byte, partyIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating party id: %w", err)
	}
	return p.IDPrefix() + strings.ToUpper(hex.EncodeToString(b)), nil
}

// PartyTypeOf infers the party type from an identifier prefix.
func PartyTypeOf(id string) (PartyType, bool) {
	switch {
	case strings.HasPrefix(id, "MR"):
		return PartyMerchant, true
	case strings.HasPrefix(id, "UR"):
		return PartyUser, true
	}
	return "", false
}

// ValidPin reports whether pin is 4 to 6 digits.
func ValidPin(pin string) bool {
	return pinRe.MatchString(pin)
}

// ValidPhone reports whether phone is a 10-digit number.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// Actor is the authenticated party performing an operation.
type Actor struct {
	Type PartyType `json:"type"`
	ID   string    `json:"id"`
}

func MerchantActor(id string) Actor { return Actor{Type: PartyMerchant, ID: id} }
func UserActor(id string) Actor     { return Actor{Type: PartyUser, ID: id} }

func (a Actor) IsMerchant() bool { return a.Type == PartyMerchant }
func (a Actor) IsUser() bool     { return a.Type == PartyUser }

// Is reports whether the actor is exactly the given party.
func (a Actor) Is(t PartyType, id string) bool {
	return a.Type == t && a.ID == id
}

// Merchant is a store holding prepaid balances for its users.
type Merchant struct {
	ID               string    `json:"id"`
	StoreName        string    `json:"store_name"`
	OwnerName        string    `json:"owner_name,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	StoreAddress     string    `json:"store_address,omitempty"`
	PasswordHash     *string   `json:"-"` // Never expose
	GoogleSubject    *string   `json:"-"`
	GoogleEmail      *string   `json:"google_email,omitempty"`
	ProfileCompleted bool      `json:"profile_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// User is a customer holding one balance per linked merchant.
// PinHash is the single secret authorizing every link the user holds.
type User struct {
	ID               string    `json:"id"`
	UserName         string    `json:"user_name"`
	Phone            *string   `json:"phone,omitempty"`
	PasswordHash     *string   `json:"-"` // Never expose
	PinHash          *string   `json:"-"` // Never expose
	GoogleSubject    *string   `json:"-"`
	GoogleEmail      *string   `json:"google_email,omitempty"`
	ProfileCompleted bool      `json:"profile_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasPin returns true once the user has set a PIN.
func (u *User) HasPin() bool {
	return u.PinHash != nil && *u.PinHash != ""
}

// HasPassword returns true when the account can log in with a password.
func (m *Merchant) HasPassword() bool {
	return m.PasswordHash != nil && *m.PasswordHash != ""
}

// HasPassword returns true when the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
