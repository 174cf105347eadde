package domain

import "time"

// LoginToken is a single-use magic-link token. TTL is epoch seconds and is
// also the DynamoDB time-to-live attribute.
type LoginToken struct {
	Token     string    `json:"token" dynamodbav:"token"` // Partition Key
	Email     string    `json:"email" dynamodbav:"email"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	TTL       int64     `json:"ttl" dynamodbav:"ttl"`
}

// Expired reports whether the token is past its TTL at the given instant.
func (t LoginToken) Expired(now time.Time) bool {
	return t.TTL <= now.Unix()
}

// PartyMembership maps an email address to a party it may access.
type PartyMembership struct {
	PartyKey  string    `json:"partyKey" dynamodbav:"partyKey"` // Partition Key
	Email     string    `json:"email" dynamodbav:"email"`       // Sort Key, emailIndex hash key
	PartyName string    `json:"partyName,omitempty" dynamodbav:"partyName,omitempty"`
	AddedAt   time.Time `json:"addedAt" dynamodbav:"addedAt"`
}

// Assertion is the signed identity issued when a login token is redeemed.
type Assertion struct {
	Assertion string    `json:"assertion"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Identity struct {
	Email   string            `json:"email"`
	Parties []PartyMembership `json:"parties"`
}
