package firestore

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreClient wraps the Firestore SDK client.
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient initializes a client for the given project. On Cloud
// Run it uses default credentials; locally it falls back to the credentials
// file named in GOOGLE_APPLICATION_CREDENTIALS.
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	var client *firestore.Client
	var err error

	isCloudRun := os.Getenv("K_SERVICE") != ""

	if isCloudRun {
		client, err = firestore.NewClient(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client with default auth: %w", err)
		}
	} else {
		credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsFile == "" {
			client, err = firestore.NewClient(ctx, projectID)
		} else if _, fileErr := os.Stat(credentialsFile); fileErr != nil {
			log.Printf("credentials file not found: %s, trying default authentication", credentialsFile)
			client, err = firestore.NewClient(ctx, projectID)
		} else {
			client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
	}

	log.Printf("Firestore client initialized for project %s", projectID)
	return &FirestoreClient{client: client}, nil
}

// GetClient returns the underlying Firestore client.
func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}

// Close releases the client.
func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}
