package services

import (
	"context"
	"errors"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

var (
	firestoreClient *firestore.Client
	once            sync.Once
	initError       error
)

// InitFirebase initializes the process-wide Firebase app and its Firestore
// client. Safe to call more than once; only the first call does work.
func InitFirebase(ctx context.Context, projectID, credentialsPath string) error {
	once.Do(func() {
		log := logrus.WithField("component", "firebase")
		log.Infof("initializing Firebase app (project=%s)", projectID)

		var opts []option.ClientOption
		if credentialsPath != "" {
			opts = append(opts, option.WithCredentialsFile(credentialsPath))
		}

		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
		if err != nil {
			initError = err
			log.WithError(err).Error("failed to init Firebase app")
			return
		}

		firestoreClient, err = app.Firestore(ctx)
		if err != nil {
			initError = err
			log.WithError(err).Error("failed to get Firestore client")
			return
		}

		log.Info("Firestore client initialized")
	})

	return initError
}

// FirestoreClient returns the shared Firestore client. InitFirebase must
// have succeeded first.
func FirestoreClient() (*firestore.Client, error) {
	if firestoreClient == nil {
		if initError != nil {
			return nil, initError
		}
		return nil, errors.New("firebase not initialized")
	}
	return firestoreClient, nil
}

// CloseFirebase releases the Firestore connection. Only called at process
// shutdown; the client is never torn down during normal operation.
func CloseFirebase() {
	if firestoreClient != nil {
		_ = firestoreClient.Close()
	}
}
