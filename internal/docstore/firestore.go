package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by Cloud Firestore through the Firebase Admin
// SDK.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore initializes a Firebase app and its Firestore client. With an
// empty credentialsPath, application default credentials are used.
func NewFirestore(ctx context.Context, projectID, credentialsPath string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}

	return &Firestore{client: client}, nil
}

func (f *Firestore) Watch(ctx context.Context, collection string) (<-chan Snapshot, error) {
	it := f.client.Collection(collection).Snapshots(ctx)

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				send(ctx, out, Snapshot{Err: fmt.Errorf("firestore snapshot: %w", err)})
				return
			}

			refs, err := snap.Documents.GetAll()
			if err != nil {
				send(ctx, out, Snapshot{Err: fmt.Errorf("firestore snapshot documents: %w", err)})
				return
			}

			docs := make([]Document, 0, len(refs))
			for _, d := range refs {
				docs = append(docs, Document{ID: d.Ref.ID, Data: d.Data()})
			}
			if !send(ctx, out, Snapshot{Documents: docs}) {
				return
			}
		}
	}()

	return out, nil
}

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}
	return ref.ID, nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, set map[string]interface{}, clear []string) error {
	if len(set) == 0 && len(clear) == 0 {
		return ErrEmptyUpdate
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(set)+len(clear))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: set[k]})
	}
	for _, k := range clear {
		updates = append(updates, firestore.Update{Path: k, Value: firestore.Delete})
	}

	if _, err := f.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return mapFirestoreError("update", err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapFirestoreError("delete", err)
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func mapFirestoreError(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("failed to %s document: %w", op, ErrNotFound)
	}
	return fmt.Errorf("failed to %s document: %w", op, err)
}
