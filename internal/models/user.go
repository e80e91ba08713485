package models

import "time"

// User is an OS account identity, resolved once per distinct SID quadruple
// and immutable once recorded.
type User struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"-"`

	AccountName string `gorm:"uniqueIndex:idx_user_identity;not null" json:"account_name"`
	DomainName  string `gorm:"uniqueIndex:idx_user_identity;not null" json:"domain_name"`
	AccountSid  string `gorm:"uniqueIndex:idx_user_identity;not null" json:"account_sid"`
	DomainSid   string `gorm:"uniqueIndex:idx_user_identity;not null" json:"domain_sid"`
}

// Equal compares the identity quadruple, ignoring database bookkeeping.
func (u User) Equal(other User) bool {
	return u.AccountName == other.AccountName &&
		u.DomainName == other.DomainName &&
		u.AccountSid == other.AccountSid &&
		u.DomainSid == other.DomainSid
}
