package utils

import "errors"

// PositionStep is the gap left between neighbours so most moves touch a single row.
const PositionStep = 100

var ErrOrderedItemNotFound = errors.New("ordered item not found")

type Ordered struct {
	Id       int
	Position int
}

// MoveAfter computes new positions for moving itemId directly after precedingId
// (0 moves it to the front). items must be sorted by position. The returned
// slice holds only the entries whose position has to be persisted.
func MoveAfter(items []Ordered, itemId, precedingId int) ([]Ordered, error) {
	moving := -1
	for i, item := range items {
		if item.Id == itemId {
			moving = i
			break
		}
	}
	if moving == -1 {
		return nil, ErrOrderedItemNotFound
	}
	if itemId == precedingId {
		return nil, nil
	}

	rest := make([]Ordered, 0, len(items)-1)
	rest = append(rest, items[:moving]...)
	rest = append(rest, items[moving+1:]...)

	prevIdx := -1
	if precedingId > 0 {
		for i, item := range rest {
			if item.Id == precedingId {
				prevIdx = i
				break
			}
		}
		if prevIdx == -1 {
			return nil, ErrOrderedItemNotFound
		}
	}

	prevPos := 0
	if prevIdx >= 0 {
		prevPos = rest[prevIdx].Position
	}
	if prevIdx == len(rest)-1 {
		return []Ordered{{Id: itemId, Position: prevPos + PositionStep}}, nil
	}
	nextPos := rest[prevIdx+1].Position
	if nextPos-prevPos > 1 {
		return []Ordered{{Id: itemId, Position: prevPos + (nextPos-prevPos)/2}}, nil
	}

	// no room left between neighbours, renumber everything
	reordered := make([]Ordered, 0, len(items))
	reordered = append(reordered, rest[:prevIdx+1]...)
	reordered = append(reordered, items[moving])
	reordered = append(reordered, rest[prevIdx+1:]...)
	changed := make([]Ordered, 0, len(reordered))
	for i, item := range reordered {
		position := (i + 1) * PositionStep
		if item.Position != position {
			changed = append(changed, Ordered{Id: item.Id, Position: position})
		}
	}
	return changed, nil
}
