package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/napat44/dorm-billing/backend/config"
	"github.com/napat44/dorm-billing/backend/database"
	"github.com/napat44/dorm-billing/backend/handlers"
	"github.com/napat44/dorm-billing/backend/middleware"
	"github.com/napat44/dorm-billing/backend/services"
)

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %v", err)
				log.Printf("Stack trace: %s", debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	log.Println("Starting Dorm Billing System...")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cycleService := services.NewCycleService(db, cfg.DueDateOffset)
	rateService := services.NewRateService(db)
	allocator := services.NewAllocator(db, cycleService, rateService, cfg.MaintenanceFee)
	billingService := services.NewBillingService(db, cycleService, allocator)
	aggregator := services.NewBillAggregator(db, allocator)
	pdfGenerator := services.NewPDFGenerator("")
	mqttCollector := services.NewMQTTCollector(db, cfg.MQTTBroker, cfg.MQTTTopic)

	if cfg.MQTTBroker != "" {
		go mqttCollector.Start()
		defer mqttCollector.Stop()
	}

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	buildingHandler := handlers.NewBuildingHandler(db)
	roomHandler := handlers.NewRoomHandler(db)
	roomTypeHandler := handlers.NewRoomTypeHandler(db)
	tenantHandler := handlers.NewTenantHandler(db)
	contractHandler := handlers.NewContractHandler(db)
	announcementHandler := handlers.NewAnnouncementHandler(db)
	billingHandler := handlers.NewBillingHandler(db, cycleService, billingService, aggregator, pdfGenerator)
	exportHandler := handlers.NewExportHandler(cycleService, aggregator)
	dashboardHandler := handlers.NewDashboardHandler(db, aggregator)

	r := mux.NewRouter()

	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/health", healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods("POST")

	api.HandleFunc("/buildings", buildingHandler.List).Methods("GET")
	api.HandleFunc("/buildings", buildingHandler.Create).Methods("POST")
	api.HandleFunc("/buildings/{id}", buildingHandler.Get).Methods("GET")
	api.HandleFunc("/buildings/{id}", buildingHandler.Update).Methods("PUT")
	api.HandleFunc("/buildings/{id}", buildingHandler.Delete).Methods("DELETE")

	api.HandleFunc("/rooms", roomHandler.List).Methods("GET")
	api.HandleFunc("/rooms", roomHandler.Create).Methods("POST")
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods("GET")
	api.HandleFunc("/rooms/{id}", roomHandler.Update).Methods("PUT")
	api.HandleFunc("/rooms/{id}", roomHandler.Delete).Methods("DELETE")

	api.HandleFunc("/room-types", roomTypeHandler.List).Methods("GET")
	api.HandleFunc("/room-types", roomTypeHandler.Create).Methods("POST")
	api.HandleFunc("/room-types/{id}", roomTypeHandler.Update).Methods("PUT")
	api.HandleFunc("/room-types/{id}", roomTypeHandler.Delete).Methods("DELETE")

	api.HandleFunc("/tenants", tenantHandler.List).Methods("GET")
	api.HandleFunc("/tenants", tenantHandler.Create).Methods("POST")
	api.HandleFunc("/tenants/{id}", tenantHandler.Get).Methods("GET")
	api.HandleFunc("/tenants/{id}", tenantHandler.Update).Methods("PUT")
	api.HandleFunc("/tenants/{id}", tenantHandler.Delete).Methods("DELETE")

	api.HandleFunc("/contracts", contractHandler.List).Methods("GET")
	api.HandleFunc("/contracts", contractHandler.Create).Methods("POST")
	api.HandleFunc("/contracts/{id}", contractHandler.Get).Methods("GET")
	api.HandleFunc("/contracts/{id}", contractHandler.Update).Methods("PUT")
	api.HandleFunc("/contracts/{id}/end", contractHandler.End).Methods("POST")
	api.HandleFunc("/contracts/{id}", contractHandler.Delete).Methods("DELETE")

	api.HandleFunc("/announcements", announcementHandler.List).Methods("GET")
	api.HandleFunc("/announcements", announcementHandler.Create).Methods("POST")
	api.HandleFunc("/announcements/{id}", announcementHandler.Update).Methods("PUT")
	api.HandleFunc("/announcements/{id}", announcementHandler.Delete).Methods("DELETE")

	api.HandleFunc("/billing/cycles", billingHandler.ListCycles).Methods("GET")
	api.HandleFunc("/billing/cycles", billingHandler.CreateCycle).Methods("POST")
	api.HandleFunc("/billing/cycles/{id}/status", billingHandler.UpdateCycleStatus).Methods("PUT")
	api.HandleFunc("/billing/readings", billingHandler.ListReadings).Methods("GET")
	api.HandleFunc("/billing/readings", billingHandler.RecordReading).Methods("POST")
	api.HandleFunc("/billing/rates", billingHandler.ListRates).Methods("GET")
	api.HandleFunc("/billing/rates", billingHandler.CreateRate).Methods("POST")
	api.HandleFunc("/billing/bills", billingHandler.ListBills).Methods("GET")
	api.HandleFunc("/billing/bills", billingHandler.CreateBill).Methods("POST")
	api.HandleFunc("/billing/bills/{id}", billingHandler.GetBill).Methods("GET")
	api.HandleFunc("/billing/bills/{id}/status", billingHandler.UpdateBillStatus).Methods("PUT")
	api.HandleFunc("/billing/bills/{id}/pdf", billingHandler.GetBillPDF).Methods("GET")
	api.HandleFunc("/billing/run", billingHandler.RunBilling).Methods("POST")
	api.HandleFunc("/billing/export", exportHandler.ExportBills).Methods("GET")

	api.HandleFunc("/dashboard/stats", dashboardHandler.GetStats).Methods("GET")
	api.HandleFunc("/dashboard/logs", dashboardHandler.GetLogs).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:4173", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := c.Handler(r)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.ServerAddress)
	log.Printf("Maintenance fee per bill: %.2f", cfg.MaintenanceFee)
	log.Println("Default credentials: admin / admin123")
	log.Println("IMPORTANT: Change default password after first login!")
	log.Println("===========================================")

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
