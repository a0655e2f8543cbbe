package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSign/internal/db"
	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/oxidb"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

const SignaturesCollection = "_esign_signatures"

type SignatureRepo struct {
	pool *db.Pool
}

func NewSignatureRepo(pool *db.Pool) *SignatureRepo {
	return &SignatureRepo{pool: pool}
}

func (r *SignatureRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateUniqueIndex(ctx, SignaturesCollection, "tracking_id"); err != nil {
		return err
	}
	if err := c.CreateIndex(ctx, SignaturesCollection, "quiz_id"); err != nil {
		return err
	}
	return c.CreateIndex(ctx, SignaturesCollection, createdField)
}

func (r *SignatureRepo) Create(ctx context.Context, sig *models.Signature) error {
	sig.Version = 1
	doc, err := toDoc(sig, sig.CreatedAt)
	if err != nil {
		return err
	}
	if _, err := r.pool.Get().Insert(ctx, SignaturesCollection, doc); err != nil {
		var dup *oxidb.DuplicateKeyError
		if errors.As(err, &dup) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *SignatureRepo) FindOne(ctx context.Context, query map[string]any) (*models.Signature, error) {
	doc, err := r.pool.Get().FindOne(ctx, SignaturesCollection, query)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, store.ErrNotFound
	}
	var sig models.Signature
	if err := fromDoc(doc, &sig); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	return &sig, nil
}

// Update writes sig only if the stored version still matches sig.Version.
func (r *SignatureRepo) Update(ctx context.Context, sig *models.Signature) error {
	next := *sig
	next.Version = sig.Version + 1
	doc, err := toDoc(&next, sig.CreatedAt)
	if err != nil {
		return err
	}
	c := r.pool.Get()
	query := map[string]any{"tracking_id": sig.TrackingID, "version": sig.Version}
	modified, err := c.UpdateOne(ctx, SignaturesCollection, query, map[string]any{"$set": doc})
	if err != nil {
		return err
	}
	if modified == 0 {
		n, err := c.Count(ctx, SignaturesCollection, map[string]any{"tracking_id": sig.TrackingID})
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	sig.Version = next.Version
	return nil
}

// FindAll returns every signature ordered by insertion.
func (r *SignatureRepo) FindAll(ctx context.Context) ([]models.Signature, error) {
	docs, err := r.pool.Get().Find(ctx, SignaturesCollection, map[string]any{}, &oxidb.FindOptions{
		Sort: map[string]any{"_id": 1},
	})
	if err != nil {
		return nil, err
	}
	sigs := make([]models.Signature, 0, len(docs))
	for _, d := range docs {
		var s models.Signature
		if err := fromDoc(d, &s); err != nil {
			continue
		}
		sigs = append(sigs, s)
	}
	return sigs, nil
}

func (r *SignatureRepo) Delete(ctx context.Context, query map[string]any) (int, error) {
	return r.pool.Get().Delete(ctx, SignaturesCollection, query)
}
