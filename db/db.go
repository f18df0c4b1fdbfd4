package db

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InitApp initializes the Firebase app from base64 encoded service account credentials.
func InitApp(ctx context.Context, encodedCreds, storageBucket string) (*firebase.App, error) {
	creds, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("failed to decode firebase credentials: %w", err)
	}

	var cfg *firebase.Config
	if storageBucket != "" {
		cfg = &firebase.Config{StorageBucket: storageBucket}
	}

	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}

// InitFirestore returns a Firestore client for the app. Callers own Close.
func InitFirestore(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
