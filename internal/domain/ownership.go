package domain

import "time"

// Condition is the grading of a physical copy.
type Condition string

const (
	ConditionMint     Condition = "Mint"
	ConditionNearMint Condition = "NearMint"
	ConditionVeryGood Condition = "VeryGood"
	ConditionGood     Condition = "Good"
	ConditionFair     Condition = "Fair"
	ConditionPoor     Condition = "Poor"
)

// Conditions lists every grade, best first.
var Conditions = []Condition{
	ConditionMint, ConditionNearMint, ConditionVeryGood,
	ConditionGood, ConditionFair, ConditionPoor,
}

// Valid reports whether c is empty or one of the six grades.
func (c Condition) Valid() bool {
	if c == "" {
		return true
	}
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// Ownership is one user's private annotations on a shared record.
type Ownership struct {
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	AddedAt       time.Time `json:"addedAt"`
	Condition     Condition `json:"condition,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	PurchasePrice *float64  `json:"purchasePrice,omitempty"`
}

// OwnershipFacts are the mutable fields a user sets on their ownership.
type OwnershipFacts struct {
	Condition     Condition `json:"condition,omitempty" validate:"omitempty,oneof=Mint NearMint VeryGood Good Fair Poor"`
	Notes         string    `json:"notes,omitempty" validate:"max=4000"`
	PurchasePrice *float64  `json:"purchasePrice,omitempty" validate:"omitempty,gte=0"`
}

func (o Ownership) clone() Ownership {
	if o.PurchasePrice != nil {
		v := *o.PurchasePrice
		o.PurchasePrice = &v
	}
	return o
}

// Price returns the purchase price, 0 when unknown.
func (o Ownership) Price() float64 {
	if o.PurchasePrice == nil {
		return 0
	}
	return *o.PurchasePrice
}

// OwnershipOf returns the ownership fact belonging to userID.
func (r *Record) OwnershipOf(userID string) (Ownership, bool) {
	for _, o := range r.Owners {
		if o.UserID == userID {
			return o, true
		}
	}
	return Ownership{}, false
}

// UpsertOwnership replaces the mutable fields of userID's ownership fact,
// keeping its AddedAt, or appends a new fact added at now.
// It reports whether a new fact was appended.
func (r *Record) UpsertOwnership(userID, username string, facts OwnershipFacts, now time.Time) bool {
	for i := range r.Owners {
		if r.Owners[i].UserID != userID {
			continue
		}
		o := &r.Owners[i]
		if username != "" {
			o.Username = username
		}
		o.Condition = facts.Condition
		o.Notes = facts.Notes
		o.PurchasePrice = copyFloat(facts.PurchasePrice)
		return false
	}

	r.Owners = append(r.Owners, Ownership{
		UserID:        userID,
		Username:      username,
		AddedAt:       now,
		Condition:     facts.Condition,
		Notes:         facts.Notes,
		PurchasePrice: copyFloat(facts.PurchasePrice),
	})
	return true
}

// RemoveOwnership drops exactly userID's ownership fact and, when userID is
// the primary owner, the primary owner fields. It reports whether anything
// was removed.
func (r *Record) RemoveOwnership(userID string) bool {
	removed := false
	kept := r.Owners[:0:0]
	for _, o := range r.Owners {
		if o.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		kept = nil
	}
	r.Owners = kept

	if r.PrimaryOwnerID == userID {
		r.PrimaryOwnerID = ""
		r.PrimaryOwnerUsername = ""
		removed = true
	}
	return removed
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
