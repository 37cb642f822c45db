package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/jengzang/geolife-loader/internal/models"
)

// ReadLabeledIDs reads the newline separated manifest of users that have label files.
// A missing manifest is returned as an empty set together with found=false.
func ReadLabeledIDs(path string) (ids map[string]bool, found bool, err error) {
	ids = make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ids, false, nil
		}
		return nil, false, fmt.Errorf("failed to open labeled ids %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, true, fmt.Errorf("failed to read labeled ids %s: %w", path, err)
	}
	return ids, true, nil
}

// AggregateUsers creates one user per directory id, in the given order.
// Activity id sets come from the user id carried on each activity; users
// without activities get an empty, non-nil set.
func AggregateUsers(userIDs []string, labeled map[string]bool, activities []models.Activity) []models.User {
	byUser := make(map[string][]int64, len(userIDs))
	for _, a := range activities {
		byUser[a.UserID] = append(byUser[a.UserID], a.ID)
	}

	users := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		ids := byUser[id]
		slices.Sort(ids)
		ids = slices.Compact(ids)
		if ids == nil {
			ids = []int64{}
		}
		users = append(users, models.User{
			ID:          id,
			HasLabels:   labeled[id],
			ActivityIDs: ids,
		})
	}
	return users
}
