package main

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// account is a login created by the seed tool
type account struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Phone    string
	Address  domain.Address
}

var sampleAccounts = []account{
	{
		Name:     "Admin User",
		Email:    "admin@ecommerce.com",
		Password: "admin123",
		Role:     domain.RoleAdmin,
		Phone:    "9999999999",
		Address:  domain.Address{Street: "100 Admin Street", City: "Bengaluru", State: "KA", ZipCode: "560100", Country: "India"},
	},
	{
		Name:     "John Doe",
		Email:    "john@example.com",
		Password: "password123",
		Role:     domain.RoleUser,
		Phone:    "1234567890",
		Address:  domain.Address{Street: "123 Main Street", City: "Bengaluru", State: "KA", ZipCode: "560100", Country: "India"},
	},
}

func sampleProduct(name, description string, price int64, category domain.Category, image string, stock int, rating string, reviews int, featured bool) *domain.Product {
	return &domain.Product{
		Name:        name,
		Description: description,
		Price:       decimal.NewFromInt(price),
		Category:    category,
		Image:       "https://images.unsplash.com/" + image + "?w=300&h=300&fit=crop",
		Stock:       stock,
		Rating:      decimal.RequireFromString(rating),
		Reviews:     reviews,
		Featured:    featured,
	}
}

// sampleProducts returns a fresh copy of the demo catalog
func sampleProducts() []*domain.Product {
	return []*domain.Product{
		sampleProduct("Wireless Bluetooth Headphones", "Premium noise-cancelling wireless headphones with 30-hour battery life. Perfect for music lovers and professionals.", 6799, domain.CategoryElectronics, "photo-1505740420928-5e560c06d30e", 50, "4.5", 128, true),
		sampleProduct("Smart Fitness Watch", "Track your fitness goals with this advanced smartwatch. Heart rate monitoring, GPS, and water-resistant.", 12749, domain.CategoryElectronics, "photo-1523275335684-37898b6baf30", 30, "4.7", 95, true),
		sampleProduct("Laptop Backpack", "Durable and stylish backpack with dedicated laptop compartment. Water-resistant material.", 4249, domain.CategoryOther, "photo-1553062407-98eeb64c6a62", 75, "4.3", 62, false),
		sampleProduct("Mechanical Gaming Keyboard", "RGB mechanical keyboard with customizable keys. Perfect for gaming and typing enthusiasts.", 7649, domain.CategoryElectronics, "photo-1587829741301-dc798b83add3", 40, "4.6", 87, true),
		sampleProduct("Wireless Gaming Mouse", "High-precision wireless mouse with adjustable DPI and programmable buttons.", 5099, domain.CategoryElectronics, "photo-1527814050087-3793815479db", 60, "4.4", 73, false),
		sampleProduct("Cotton T-Shirt - Navy Blue", "100% cotton comfortable t-shirt. Available in multiple sizes. Perfect for casual wear.", 1699, domain.CategoryClothing, "photo-1521572163474-6864f9cf17ab", 100, "4.2", 156, false),
		sampleProduct("Running Shoes", "Lightweight running shoes with excellent cushioning and support. Ideal for daily workouts.", 7649, domain.CategorySports, "photo-1542291026-7eec264c27ff", 45, "4.5", 112, false),
		sampleProduct("JavaScript: The Complete Guide", "Comprehensive guide to modern JavaScript programming. Perfect for beginners and professionals.", 3399, domain.CategoryBooks, "photo-1544947950-fa07a98d237f", 80, "4.8", 243, false),
		sampleProduct("Stainless Steel Water Bottle", "Insulated water bottle keeps drinks cold for 24 hours. Eco-friendly and durable.", 2124, domain.CategoryHomeKitchen, "photo-1602143407151-7111542de6e8", 90, "4.4", 78, false),
		sampleProduct("Yoga Mat", "Non-slip yoga mat with extra cushioning. Perfect for yoga, pilates, and floor exercises.", 2549, domain.CategorySports, "photo-1601925260368-ae2f83cf8b7f", 55, "4.3", 91, false),
		sampleProduct("Portable Phone Charger", "20000mAh power bank with fast charging. Charge multiple devices on the go.", 2974, domain.CategoryElectronics, "photo-1609091839311-d5365f9ff1c5", 70, "4.5", 134, false),
		sampleProduct("Coffee Maker", "Programmable coffee maker with 12-cup capacity. Wake up to fresh coffee every morning.", 5949, domain.CategoryHomeKitchen, "photo-1517668808822-9ebb02f2a0e6", 35, "4.6", 102, false),
		sampleProduct("Wireless Earbuds", "True wireless earbuds with charging case. Clear sound and comfortable fit.", 4249, domain.CategoryElectronics, "photo-1590658268037-6bf12165a8df", 85, "4.4", 167, true),
		sampleProduct("Desk Lamp with USB Port", "LED desk lamp with adjustable brightness and built-in USB charging port.", 2974, domain.CategoryHomeKitchen, "photo-1507473885765-e6ed057f782c", 50, "4.3", 54, false),
		sampleProduct("Basketball", "Official size basketball with superior grip. Perfect for indoor and outdoor play.", 2549, domain.CategorySports, "photo-1546519638-68e109498ffc", 40, "4.5", 68, false),
		sampleProduct("Building Blocks Set", "500-piece building blocks set. Encourages creativity and problem-solving skills.", 3399, domain.CategoryToys, "photo-1587654780291-39c9404d746b", 60, "4.7", 89, false),
	}
}

// seeder inserts the demo data. Every step skips rows that already exist,
// so running it twice leaves the database unchanged.
type seeder struct {
	products repository.ProductRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

// seedCatalog inserts every sample product whose name is not taken yet
func (s *seeder) seedCatalog(ctx context.Context) (int, error) {
	created := 0
	for _, product := range sampleProducts() {
		exists, err := s.products.ExistsByName(ctx, product.Name)
		if err != nil {
			return created, err
		}
		if exists {
			s.logger.Debug("Product already present", zap.String("name", product.Name))
			continue
		}
		if err := s.products.Create(ctx, product); err != nil {
			return created, fmt.Errorf("failed to seed product %q: %w", product.Name, err)
		}
		created++
	}
	return created, nil
}

// seedAccounts creates the admin and demo shopper logins
func (s *seeder) seedAccounts(ctx context.Context) (int, error) {
	created := 0
	for _, acct := range sampleAccounts {
		_, err := s.users.FindByEmail(ctx, acct.Email)
		if err == nil {
			s.logger.Debug("Account already present", zap.String("email", acct.Email))
			continue
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return created, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(acct.Password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("failed to hash password: %w", err)
		}

		address := acct.Address
		user := &domain.User{
			Name:         acct.Name,
			Email:        acct.Email,
			PasswordHash: string(hash),
			Phone:        acct.Phone,
			Address:      &address,
			Role:         acct.Role,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return created, fmt.Errorf("failed to seed account %s: %w", acct.Email, err)
		}
		s.logger.Info("Seeded account", zap.String("email", user.Email), zap.String("role", string(user.Role)))
		created++
	}
	return created, nil
}
