package model

// Account is a buyer record keyed by name.  It is created on the first
// purchase under a name and its phone is overwritten on every later
// purchase under the same name.
type Account struct {
	ID    uint64 `json:"-" db:"id"`        // accounts.id
	Name  string `json:"name" db:"name"`   // accounts.name (unique)
	Phone string `json:"phone" db:"phone"` // accounts.phone
}
