package pricehistory

import (
	"fmt"
	"sort"
	"time"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// ActivePriceAt resolves the single price record whose [ValidFrom, ValidTo) window contains instant.
// Logic:
//  1. Keep every record whose window contains the instant
//  2. Zero matches -> NoActivePrice (never a zero price)
//  3. More than one match -> OverlappingPriceWindows (never pick by insertion order)
//
// "Current price" is ActivePriceAt(now); there is no separate latest-record path.
func ActivePriceAt(history []domain.PriceRecord, instant time.Time) (domain.PriceRecord, error) {
	var match *domain.PriceRecord
	for i := range history {
		if !history[i].Contains(instant) {
			continue
		}
		if match != nil {
			return domain.PriceRecord{}, &domain.ResolutionError{
				Kind:   domain.ErrOverlappingPriceWindows,
				Detail: fmt.Sprintf("records %s and %s both cover %s", match.ID, history[i].ID, instant.Format(time.RFC3339)),
			}
		}
		match = &history[i]
	}

	if match == nil {
		return domain.PriceRecord{}, &domain.ResolutionError{
			Kind:   domain.ErrNoActivePrice,
			Detail: "as of " + instant.Format(time.RFC3339),
		}
	}
	return *match, nil
}

// Validate checks the whole history for overlapping windows
func Validate(history []domain.PriceRecord) error {
	sorted := sortedCopy(history)
	for i := 1; i < len(sorted); i++ {
		// An earlier open-ended record can span several later ones, so compare against all of them
		for j := 0; j < i; j++ {
			if sorted[j].Overlaps(sorted[i]) {
				return &domain.ResolutionError{
					Kind:   domain.ErrOverlappingPriceWindows,
					Detail: fmt.Sprintf("records %s and %s overlap", sorted[j].ID, sorted[i].ID),
				}
			}
		}
	}
	return nil
}

// Append returns a new history with record added, leaving the input untouched.
// When closeOpen is true, an open-ended record that started before record.ValidFrom
// is closed at record.ValidFrom; that is the only edit ever made to an existing record.
// The result must not contain overlapping windows.
func Append(history []domain.PriceRecord, record domain.PriceRecord, closeOpen bool) ([]domain.PriceRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: err.Error()}
	}

	next := make([]domain.PriceRecord, 0, len(history)+1)
	for _, existing := range history {
		if closeOpen && existing.ValidTo == nil && existing.ValidFrom.Before(record.ValidFrom) {
			closedAt := record.ValidFrom
			existing.ValidTo = &closedAt
		}
		next = append(next, existing)
	}
	next = append(next, record)

	if err := Validate(next); err != nil {
		return nil, err
	}
	return sortedCopy(next), nil
}

// sortedCopy returns the records ordered by ValidFrom
func sortedCopy(history []domain.PriceRecord) []domain.PriceRecord {
	out := make([]domain.PriceRecord, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValidFrom.Before(out[j].ValidFrom)
	})
	return out
}
