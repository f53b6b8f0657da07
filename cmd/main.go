package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/communication"
	"github.com/dayplan-app/dayplan-backend/pkg/environment"
	"github.com/dayplan-app/dayplan-backend/pkg/locking"
	"github.com/dayplan-app/dayplan-backend/pkg/logger"
	"github.com/dayplan-app/dayplan-backend/pkg/scheduling"
	"github.com/dayplan-app/dayplan-backend/pkg/scheduling/calendar"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	environment.Initialize()

	client, err := mongo.NewClient(options.Client().ApplyURI(environment.Global.DatabaseUrl))
	if err != nil {
		log.Fatal(err)
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		log.Panic(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Panic(err)
	}

	defer func() {
		err := client.Disconnect(ctx)
		if err != nil {
			logging.Fatal(err)
		}
	}()

	fmt.Println("Database connected")

	databaseName := environment.Global.Database
	if databaseName == "" {
		databaseName = "dayplan"
	}
	db := client.Database(databaseName)

	workspaceRepository := &scheduling.MongoDBWorkspaceRepository{
		HabitsCollection:   db.Collection("Habits"),
		TasksCollection:    db.Collection("Tasks"),
		SettingsCollection: db.Collection("WorkspaceSettings"),
		HoursCollection:    db.Collection("WorkspaceHours"),
		Logger:             logging,
	}

	calendarRepository := &calendar.MongoDBCalendarRepository{
		EventsCollection: db.Collection("Events"),
		LinksCollection:  db.Collection("EventLinks"),
		Logger:           logging,
	}

	var locker locking.LockerInterface
	var settingsCache scheduling.SettingsCacheInterface

	if environment.Global.Redis != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     environment.Global.Redis,
			Password: environment.Global.RedisPassword,
		})

		locker = locking.NewLockerRedis(redisClient)

		settingsCache, err = scheduling.NewSettingsCacheRedis(redisClient)
		if err != nil {
			log.Panic(err)
		}

		fmt.Println("Redis connected")
	} else {
		locker = locking.NewLockerMemory()

		settingsCache, err = scheduling.NewSettingsCacheMemory()
		if err != nil {
			log.Panic(err)
		}
	}

	planningService := scheduling.NewPlanningService(
		workspaceRepository, calendarRepository, settingsCache, locker, logging)

	responseManager := communication.ResponseManager{Logger: logging}

	scheduleHandler := scheduling.Handler{
		Service:         planningService,
		Logger:          logging,
		ResponseManager: &responseManager,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the API! ✔")
		if err != nil {
			log.Printf("Error: %v\n", err)
		}
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/workspaces/{workspaceID}/schedule", scheduleHandler.ScheduleWorkspace).Methods(http.MethodPost)
	v1.HandleFunc("/workspaces/{workspaceID}/schedule/preview", scheduleHandler.PreviewWorkspace).Methods(http.MethodPost)

	v1.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := environment.Global.SchedulerKey; key != "" && r.Header.Get("X-Scheduler-Key") != key {
				responseManager.RespondWithError(w, http.StatusUnauthorized, "Invalid scheduler key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			w.Header().Add("X-Request-Id", uuid.New().String())
			if environment.Global.Cors != "" {
				w.Header().Add("Access-Control-Allow-Origin", environment.Global.Cors)
			}
			next.ServeHTTP(w, r)
		})
	})

	port := environment.Global.Port
	if port == "" {
		port = "80"
	}

	http.Handle("/", r)
	log.Panic(http.ListenAndServe(":"+port, r))
}
