// Package store implements the document-store contracts on Firestore.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"edportal/internal/models"
	"edportal/internal/payments"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Client wraps a Firestore client with the portal's collection access
// patterns. Collection names arrive fully qualified from the caller; this
// layer never decides test-vs-prod routing itself.
type Client struct {
	fs *firestore.Client
}

func New(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

// UpsertMerge sets only the given fields, creating the document if absent.
// Firestore's MergeAll gives the field-union semantics the ledger depends
// on: concurrent created/completed writers both succeed and neither
// clobbers the other's sibling fields.
func (c *Client) UpsertMerge(ctx context.Context, collection, docID string, fields map[string]interface{}) error {
	_, err := c.fs.Collection(collection).Doc(docID).Set(ctx, translateSentinels(fields), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("merge write %s/%s: %w", collection, docID, err)
	}
	return nil
}

// Append stores an audit row under a generated document id.
func (c *Client) Append(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	ref, _, err := c.fs.Collection(collection).Add(ctx, translateSentinels(fields))
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", collection, err)
	}
	return ref.ID, nil
}

// translateSentinels swaps the storage-neutral server-timestamp marker for
// Firestore's own sentinel.
func translateSentinels(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == payments.ServerTimestamp {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

// ListByUser returns a user's ledger entries, newest first.
func (c *Client) ListByUser(ctx context.Context, collection, userID string, limit int) ([]models.LedgerEntry, error) {
	iter := c.fs.Collection(collection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var entries []models.LedgerEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s for user %s: %w", collection, userID, err)
		}
		var entry models.LedgerEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("decode ledger entry %s: %w", doc.Ref.ID, err)
		}
		entry.ID = doc.Ref.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListByStatus returns ledger entries in the given status created before
// the cutoff. Used by the reconciliation sweep.
func (c *Client) ListByStatus(ctx context.Context, collection, status string, olderThan time.Time) ([]models.LedgerEntry, error) {
	iter := c.fs.Collection(collection).
		Where("status", "==", status).
		Where("createdAt", "<", olderThan).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var entries []models.LedgerEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s by status %s: %w", collection, status, err)
		}
		var entry models.LedgerEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("decode ledger entry %s: %w", doc.Ref.ID, err)
		}
		entry.ID = doc.Ref.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetModule loads one module, tolerating legacy documents whose price or
// title were stored with a capitalized field name.
func (c *Client) GetModule(ctx context.Context, collection, id string) (*models.Module, error) {
	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("get module %s/%s: %w", collection, id, err)
	}
	if snap == nil || !snap.Exists() {
		return nil, payments.ErrModuleNotFound
	}

	var module models.Module
	if err := snap.DataTo(&module); err != nil {
		return nil, fmt.Errorf("decode module %s: %w", id, err)
	}
	module.ID = snap.Ref.ID

	data := snap.Data()
	if module.Price == 0 {
		if v, ok := numberValue(data["Price"]); ok {
			module.Price = v
		}
	}
	if module.Title == "" {
		if v, ok := data["Title"].(string); ok {
			module.Title = v
		}
	}
	return &module, nil
}

func (c *Client) ListModules(ctx context.Context, collection string) ([]models.Module, error) {
	iter := c.fs.Collection(collection).Documents(ctx)
	defer iter.Stop()

	modules := []models.Module{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list modules in %s: %w", collection, err)
		}
		var module models.Module
		if err := doc.DataTo(&module); err != nil {
			return nil, fmt.Errorf("decode module %s: %w", doc.Ref.ID, err)
		}
		module.ID = doc.Ref.ID
		modules = append(modules, module)
	}
	return modules, nil
}

func (c *Client) CreateModule(ctx context.Context, collection string, module *models.Module) (string, error) {
	ref, _, err := c.fs.Collection(collection).Add(ctx, module)
	if err != nil {
		return "", fmt.Errorf("create module in %s: %w", collection, err)
	}
	return ref.ID, nil
}

// GetUser loads a user profile document by auth UID.
func (c *Client) GetUser(ctx context.Context, collection, uid string) (*models.User, error) {
	snap, err := c.fs.Collection(collection).Doc(uid).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("get user %s/%s: %w", collection, uid, err)
	}
	if snap == nil || !snap.Exists() {
		return nil, payments.ErrUserNotFound
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return &user, nil
}

// CreateUserIfAbsent registers a profile document. Reports whether it
// created the document; an existing profile is left untouched.
func (c *Client) CreateUserIfAbsent(ctx context.Context, collection, uid string, user *models.User) (bool, error) {
	ref := c.fs.Collection(collection).Doc(uid)
	snap, err := ref.Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return false, fmt.Errorf("get user %s/%s: %w", collection, uid, err)
	}
	if snap != nil && snap.Exists() {
		return false, nil
	}
	if _, err := ref.Set(ctx, user); err != nil {
		return false, fmt.Errorf("create user %s/%s: %w", collection, uid, err)
	}
	return true, nil
}

func (c *Client) ListLessons(ctx context.Context, collection string) ([]models.Lesson, error) {
	iter := c.fs.Collection(collection).Documents(ctx)
	defer iter.Stop()

	lessons := []models.Lesson{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list lessons in %s: %w", collection, err)
		}
		var lesson models.Lesson
		if err := doc.DataTo(&lesson); err != nil {
			return nil, fmt.Errorf("decode lesson %s: %w", doc.Ref.ID, err)
		}
		lesson.ID = doc.Ref.ID
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func (c *Client) CreateLesson(ctx context.Context, collection string, lesson *models.Lesson) (string, error) {
	ref, _, err := c.fs.Collection(collection).Add(ctx, lesson)
	if err != nil {
		return "", fmt.Errorf("create lesson in %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (c *Client) ListUnits(ctx context.Context, collection string) ([]models.Unit, error) {
	iter := c.fs.Collection(collection).Documents(ctx)
	defer iter.Stop()

	units := []models.Unit{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list units in %s: %w", collection, err)
		}
		var unit models.Unit
		if err := doc.DataTo(&unit); err != nil {
			return nil, fmt.Errorf("decode unit %s: %w", doc.Ref.ID, err)
		}
		unit.ID = doc.Ref.ID
		units = append(units, unit)
	}
	return units, nil
}

func (c *Client) GetUnit(ctx context.Context, collection, id string) (*models.Unit, error) {
	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("get unit %s/%s: %w", collection, id, err)
	}
	if snap == nil || !snap.Exists() {
		return nil, ErrNotFound
	}
	var unit models.Unit
	if err := snap.DataTo(&unit); err != nil {
		return nil, fmt.Errorf("decode unit %s: %w", id, err)
	}
	unit.ID = snap.Ref.ID
	return &unit, nil
}

func (c *Client) CreateUnit(ctx context.Context, collection string, unit *models.Unit) (string, error) {
	ref, _, err := c.fs.Collection(collection).Add(ctx, unit)
	if err != nil {
		return "", fmt.Errorf("create unit in %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Exists reports whether a document is present.
func (c *Client) Exists(ctx context.Context, collection, id string) (bool, error) {
	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return snap != nil && snap.Exists(), nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.fs.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
