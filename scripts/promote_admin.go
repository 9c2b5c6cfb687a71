package main

import (
	"fmt"
	"log"
	"os"

	"plantbnb-server/models"
	"plantbnb-server/storage"
)

// Promotes an existing account to an admin role.
// Usage: go run scripts/promote_admin.go <email> [admin|super_admin]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: promote_admin <email> [admin|super_admin]")
	}
	email := os.Args[1]
	role := "admin"
	if len(os.Args) > 2 {
		role = os.Args[2]
	}
	if role != "admin" && role != "super_admin" {
		log.Fatalf("invalid role %q", role)
	}

	storage.InitializeDB()

	var user models.User
	if err := storage.DB.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("user %s not found: %v", email, err)
	}

	user.Role = role
	if err := storage.DB.Save(&user).Error; err != nil {
		log.Fatalf("failed to update role: %v", err)
	}

	fmt.Printf("%s is now %s\n", email, role)
}
