package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"classifieds/pkg/config"
	"classifieds/pkg/database"
	"classifieds/pkg/ledger"
	"classifieds/pkg/logger"
	"classifieds/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	seedPassword      = "password123"
	sellerStartCredit = 50
	listingDuration   = 7 * 24 * time.Hour
)

type seedUser struct {
	email     string
	firstName string
	lastName  string
	role      models.UserRole
}

var seedUsers = []seedUser{
	{"admin@classifieds.test", "Ada", "Admin", models.RoleAdmin},
	{"moderator@classifieds.test", "Moussa", "Moderator", models.RoleModerator},
	{"seller@classifieds.test", "Sofia", "Seller", models.RoleSeller},
}

func main() {
	var password string
	flag.StringVar(&password, "password", seedPassword, "password for every seeded account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}
	defer database.Close(db)

	if err := seedDatabase(context.Background(), db, password, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(ctx context.Context, db *gorm.DB, password string, log *logger.Logger) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	l := ledger.New(db, log, nil)
	var seller *models.User

	for _, data := range seedUsers {
		user, created, err := ensureUser(ctx, db, data, string(hashedPassword))
		if err != nil {
			return err
		}
		if !created {
			log.Info("User %s already exists, skipping", data.email)
		} else {
			log.Info("Created %s user: %s", data.role, data.email)
		}

		if data.role == models.RoleSeller {
			seller = user
			if created {
				if _, err := l.AddCredits(ctx, user.ID, sellerStartCredit, "seed", "Welcome credits"); err != nil {
					return fmt.Errorf("failed to credit seller: %w", err)
				}
			}
		}
	}

	var listings int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Where("seller_id = ?", seller.ID).Count(&listings).Error; err != nil {
		return fmt.Errorf("failed to count listings: %w", err)
	}
	if listings > 0 {
		log.Info("Seller already has %d listings, skipping", listings)
		return nil
	}

	now := time.Now().UTC()
	published := now
	expires := now.Add(listingDuration)
	bikePrice, sofaPrice := 120.0, 250.0

	products := []*models.Product{
		{
			SellerID:    seller.ID,
			Title:       "City bike, 21 speeds",
			Description: "Well maintained, new tyres, ready to ride.",
			Category:    "vehicles",
			Price:       &bikePrice,
			Status:      models.StatusApproved,
			PublishedAt: &published,
			ExpiresAt:   &expires,
			Photos:      []models.Photo{{URL: "https://picsum.photos/seed/bike/800/600", IsPrimary: true}},
		},
		{
			SellerID:    seller.ID,
			Title:       "Three-seat sofa",
			Description: "Grey fabric, no stains. Pick up only.",
			Category:    "furniture",
			Price:       &sofaPrice,
			Status:      models.StatusPending,
			Photos:      []models.Photo{{URL: "https://picsum.photos/seed/sofa/800/600", IsPrimary: true}},
		},
	}

	for _, product := range products {
		if err := db.WithContext(ctx).Omit("Seller").Create(product).Error; err != nil {
			return fmt.Errorf("failed to create listing %q: %w", product.Title, err)
		}
		log.Info("Created %s listing: %s", product.Status, product.Title)
	}

	return nil
}

func ensureUser(ctx context.Context, db *gorm.DB, data seedUser, hashedPassword string) (*models.User, bool, error) {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", data.email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up %s: %w", data.email, err)
	}

	user := &models.User{
		Email:     data.email,
		Password:  hashedPassword,
		FirstName: data.firstName,
		LastName:  data.lastName,
		Role:      data.role,
		IsActive:  true,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create %s: %w", data.email, err)
	}
	return user, true, nil
}
