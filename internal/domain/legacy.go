package domain

// LegacyRaterID holds a legacy scalar rating whose author is unknown. It
// never matches a generated user id.
const LegacyRaterID = "legacy"

// Normalize folds the legacy single-owner scalars into the plural
// structures and reports whether the record changed. It is idempotent and
// runs whenever a record is loaded or imported, so the rest of the code
// only ever reads Owners and Ratings.
//
//   - a primary owner without an ownership fact gets one, built from the
//     record-level condition and purchase price, added at CreatedAt
//   - a scalar legacyRating becomes the primary owner's rating fact
//     when no rating facts exist yet
//   - a legacyRating with no primary owner becomes a rating fact held by
//     LegacyRaterID, so it keeps counting once real users rate the record
func (r *Record) Normalize() bool {
	changed := false

	if r.PrimaryOwnerID != "" {
		if _, ok := r.OwnershipOf(r.PrimaryOwnerID); !ok {
			r.Owners = append(r.Owners, Ownership{
				UserID:        r.PrimaryOwnerID,
				Username:      r.PrimaryOwnerUsername,
				AddedAt:       r.CreatedAt,
				Condition:     r.LegacyCondition,
				PurchasePrice: copyFloat(r.LegacyPurchasePrice),
			})
			changed = true
		}
	}
	if r.LegacyCondition != "" || r.LegacyPurchasePrice != nil {
		r.LegacyCondition = ""
		r.LegacyPurchasePrice = nil
		changed = true
	}

	if r.LegacyRating != nil {
		if v := *r.LegacyRating; v >= MinRating && v <= MaxRating {
			switch {
			case r.PrimaryOwnerID != "" && len(r.Ratings) == 0:
				r.Ratings = []Rating{{
					UserID:    r.PrimaryOwnerID,
					Username:  r.PrimaryOwnerUsername,
					Rating:    v,
					CreatedAt: r.CreatedAt,
				}}
			case r.PrimaryOwnerID == "":
				if _, ok := r.RatingOf(LegacyRaterID); !ok {
					r.Ratings = append(r.Ratings, Rating{
						UserID:    LegacyRaterID,
						Rating:    v,
						CreatedAt: r.CreatedAt,
					})
				}
			}
		}
		r.LegacyRating = nil
		changed = true
	}

	if r.UpdatedAt.IsZero() && !r.CreatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
		changed = true
	}

	return changed
}
