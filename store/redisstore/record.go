package redisstore

import (
	"encoding/json"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

const recordVersion = 1

// record is the stored shape of a user. goAccount.User hides its secrets
// from JSON, so they are copied out explicitly here.
type record struct {
	Version      int       `json:"v"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstname,omitempty"`
	LastName     string    `json:"lastname,omitempty"`
	Mobile       string    `json:"mobile,omitempty"`
	IsBlocked    bool      `json:"blocked,omitempty"`
	PasswordHash string    `json:"pwd"`
	RefreshHash  string    `json:"rh,omitempty"`
	RefreshExp   time.Time `json:"rx,omitempty"`
	ResetHash    string    `json:"xh,omitempty"`
	ResetExp     time.Time `json:"xx,omitempty"`
	CreatedAt    time.Time `json:"created"`
	UpdatedAt    time.Time `json:"updated"`
}

func fromUser(u *goAccount.User) record {
	return record{
		Version:      recordVersion,
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Mobile:       u.Mobile,
		IsBlocked:    u.IsBlocked,
		PasswordHash: u.PasswordHash,
		RefreshHash:  u.Refresh.Hash,
		RefreshExp:   u.Refresh.ExpiresAt,
		ResetHash:    u.Reset.Hash,
		ResetExp:     u.Reset.ExpiresAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *record) user() *goAccount.User {
	return &goAccount.User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Mobile:       r.Mobile,
		IsBlocked:    r.IsBlocked,
		PasswordHash: r.PasswordHash,
		Refresh:      goAccount.TokenState{Hash: r.RefreshHash, ExpiresAt: r.RefreshExp},
		Reset:        goAccount.TokenState{Hash: r.ResetHash, ExpiresAt: r.ResetExp},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func encodeRecord(r record) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(data []byte) (*record, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Version != recordVersion {
		return nil, errCorrupt
	}
	return &r, nil
}
