package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"analystpro/internal/assembler"
	"analystpro/internal/auth"
	"analystpro/internal/config"
	"analystpro/internal/filecodec"
	"analystpro/internal/llm"
	"analystpro/internal/orchestrator"
	"analystpro/internal/questionbank"
	"analystpro/internal/refine"
	"analystpro/internal/server"
	"analystpro/internal/store"
	"analystpro/internal/store/filevault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	var client llm.Client
	if cfg.GeminiAPIKey != "" {
		client, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, llm.GeminiOptions{
			ReasoningModel: cfg.ReasoningModel,
			FastModel:      cfg.FastModel,
			LiteModel:      cfg.LiteModel,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
	} else {
		log.Printf("GEMINI_API_KEY not set; running with the offline scripted client")
		client = &llm.FakeClient{TextOut: "offline mode", StreamParts: []string{"offline mode: no model configured"}}
	}
	defer client.Close()

	var verifier auth.TokenVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewVerifier(ctx, cfg.JWKSURL)
		if err != nil {
			log.Fatalf("Failed to initialize token verifier: %v", err)
		}
		verifier = v
	} else {
		log.Printf("AUTH_JWKS_URL not set; using local identity %q", cfg.LocalUser)
		verifier = auth.Static{Session: auth.Session{UserID: cfg.LocalUser}}
	}

	st := store.NewFromEnv(cfg.StorePath)
	defer st.Close()

	var vault filevault.Vault = filevault.NewMemory()
	if cfg.FileVault.Enabled {
		v, err := filevault.NewS3(filevault.S3Config{
			Endpoint:  cfg.FileVault.Endpoint,
			Region:    cfg.FileVault.Region,
			AccessKey: cfg.FileVault.AccessKey,
			SecretKey: cfg.FileVault.SecretKey,
			Bucket:    cfg.FileVault.Bucket,
			UseSSL:    cfg.FileVault.UseSSL,
		})
		if err != nil {
			log.Printf("File vault disabled: %v", err)
		} else {
			vault = v
		}
	}

	codec := filecodec.New()
	asm := assembler.New(client, codec, assembler.Options{DisableGrounding: cfg.DisableGrounding})
	orch := orchestrator.New(questionbank.New(client, questionbank.FallbackStatic), asm, client, st)

	api := server.New(server.Options{
		Orchestrator:   orch,
		Store:          st,
		Codec:          codec,
		Refiner:        refine.New(client),
		Assembler:      asm,
		Verifier:       verifier,
		Vault:          vault,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := server.NewHTTP(cfg.Port, api.Handler())
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
