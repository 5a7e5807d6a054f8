package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"framez.app/framez/config"
	"framez.app/framez/routes"
	"framez.app/framez/services"
	"framez.app/framez/session"
	"framez.app/framez/store"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx := context.Background()

	cfg := config.Load()

	var st store.Store
	switch cfg.StorageBackend {
	case "memory":
		logrus.Info("[STORE] using in-memory storage")
		st = store.NewMemoryStore()
	default:
		logrus.Infof("[STORE] using Firestore storage (project=%s)", cfg.FirebaseProjectID)
		if err := services.InitFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath); err != nil {
			logrus.WithError(err).Fatal("Firebase init failed")
		}
		defer services.CloseFirebase()

		client, err := services.FirestoreClient()
		if err != nil {
			logrus.WithError(err).Fatal("Firestore client unavailable")
		}
		st = store.NewFirestoreStore(client)
	}

	uploader := services.NewCloudinaryService(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
	postService := services.NewPostService(st, uploader)

	authClient := services.NewAuthClient(services.AuthConfig{
		APIKey:          cfg.FirebaseAPIKey,
		CredentialsFile: cfg.SessionCredentialsFile,
	})

	manager := session.NewManager(authClient, postService)
	defer manager.Close()

	router := mux.NewRouter()
	routes.CreateUserRoutes(router, manager, postService)
	routes.CreatePostRoutes(router, manager, postService, st)

	addr := ":" + cfg.Port
	logrus.Infof("framez API listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
