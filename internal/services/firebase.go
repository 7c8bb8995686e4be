package services

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Firebase bundles the admin SDK clients the portal depends on: token
// verification and the Firestore document store.
type Firebase struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// InitFirebase initializes the Firebase Admin SDK from a service account
// credentials file and returns the auth and Firestore clients.
func InitFirebase(ctx context.Context, credPath string) (*Firebase, error) {
	opt := option.WithCredentialsFile(credPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}

	return &Firebase{Auth: authClient, Firestore: fsClient}, nil
}

// Close releases the Firestore connection.
func (f *Firebase) Close() error {
	if f.Firestore != nil {
		return f.Firestore.Close()
	}
	return nil
}
