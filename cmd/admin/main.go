package main

import (
	"fmt"
	"log"
	"os"

	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, err := gorm.Open(postgres.Open(config.DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <online|waiting|close> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "online":
		printOnlineTherapists(db)

	case "waiting":
		pending, err := storageSvc.GetAllPendingUsers()
		if err != nil {
			log.Fatalf("failed to list pending users: %v", err)
		}
		if len(pending) == 0 {
			fmt.Println("Nobody is waiting.")
			return
		}
		for _, p := range pending {
			fmt.Printf("%s  %-20s  since %s  %q\n",
				p.UserID, p.Name, p.EnqueuedAt.Format("15:04:05"), p.InitialMessage)
		}

	case "close":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin close <conversation_id>")
			os.Exit(1)
		}
		id := os.Args[2]
		if _, err := storageSvc.GetActiveConversationByID(id); err != nil {
			log.Fatalf("conversation %s: %v", id, err)
		}
		if err := storageSvc.CloseActiveConversation(id); err != nil {
			log.Fatalf("failed to close conversation %s: %v", id, err)
		}
		fmt.Printf("Conversation %s closed.\n", id)

	default:
		fmt.Printf("Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

func printOnlineTherapists(db *gorm.DB) {
	type row struct {
		TherapistID string
		Name        string
		OnlineSince string
	}
	var rows []row
	err := db.Raw(`
        SELECT o.therapist_id, t.name, o.online_since
        FROM online_therapists o
        JOIN therapists t ON t.id = o.therapist_id
        ORDER BY o.online_since ASC
    `).Scan(&rows).Error
	if err != nil {
		log.Fatalf("failed to list online therapists: %v", err)
	}
	if len(rows) == 0 {
		fmt.Println("No therapists online.")
		return
	}
	for _, r := range rows {
		fmt.Printf("%s  %-20s  online since %s\n", r.TherapistID, r.Name, r.OnlineSince)
	}
}
