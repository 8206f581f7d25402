package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/observability"
	"github.com/tesloshop/backend/internal/security"
)

var defaultRoles = []domain.Role{
	{Name: domain.RoleUser, Description: "Default user role"},
	{Name: domain.RoleAdmin, Description: "Administrator role"},
	{Name: domain.RoleSuperUser, Description: "Unrestricted operator role"},
}

type seedProduct struct {
	Title       string
	Slug        string
	Description string
	Price       float64
	Stock       int
	Sizes       []string
	Gender      string
	Tags        []string
	Images      []string
}

var sampleCatalog = []seedProduct{
	{
		Title:       "Men's Chill Crew Neck Sweatshirt",
		Slug:        "mens-chill-crew-neck-sweatshirt",
		Description: "Introducing the Tesla Chill Collection. The Men's Chill Crew Neck Sweatshirt has a premium, heavyweight exterior and soft fleece interior for comfort in any season.",
		Price:       75,
		Stock:       7,
		Sizes:       []string{"XS", "S", "M", "L", "XL", "XXL"},
		Gender:      domain.GenderMen,
		Tags:        []string{"sweatshirt"},
		Images:      []string{"1740176-00-A_0_2000.jpg", "1740176-00-A_1.jpg"},
	},
	{
		Title:       "Men's Quilted Shirt Jacket",
		Slug:        "mens-quilted-shirt-jacket",
		Description: "The Men's Quilted Shirt Jacket features a uniquely fit, quilted design for warmth and mobility in cold weather seasons.",
		Price:       200,
		Stock:       5,
		Sizes:       []string{"XS", "S", "M", "XL", "XXL"},
		Gender:      domain.GenderMen,
		Tags:        []string{"jacket"},
		Images:      []string{"1740507-00-A_0_2000.jpg", "1740507-00-A_1.jpg"},
	},
	{
		Title:       "Women's Cropped Puffer Jacket",
		Slug:        "womens-cropped-puffer-jacket",
		Description: "The Women's Cropped Puffer Jacket features a uniquely cropped silhouette for the perfect, modern style while on the go during the cozy season ahead.",
		Price:       225,
		Stock:       85,
		Sizes:       []string{"XS", "S", "M"},
		Gender:      domain.GenderWomen,
		Tags:        []string{"jacket", "women"},
		Images:      []string{"1654219-00-A_0_2000.jpg", "1654219-00-A_1.jpg"},
	},
	{
		Title:       "Kids Cyberquad Bomber Jacket",
		Slug:        "kids-cyberquad-bomber-jacket",
		Description: "Wear your Cyberquad bomber jacket during your adventures on Cyberquad for Kids.",
		Price:       65,
		Stock:       10,
		Sizes:       []string{"XS", "S", "M"},
		Gender:      domain.GenderKid,
		Tags:        []string{"shirt"},
		Images:      []string{"1742702-00-A_0_2000.jpg", "1742702-00-A_1.jpg"},
	},
	{
		Title:       "3D Large Wordmark Tee",
		Slug:        "3d-large-wordmark-tee",
		Description: "Designed for comfort, the 3D Large Wordmark Tee is made from 100% Peruvian cotton and features a 3D silicone-printed wordmark on the front.",
		Price:       35,
		Stock:       50,
		Sizes:       []string{"XS", "S", "M", "L", "XL", "XXL"},
		Gender:      domain.GenderUnisex,
		Tags:        []string{"shirt"},
		Images:      []string{"8764734-00-A_0_2000.jpg", "8764734-00-A_1.jpg"},
	},
}

type seedUser struct {
	Email    string
	FullName string
	Password string
	Roles    []string
}

var sampleUsers = []seedUser{
	{Email: "admin@teslo.shop", FullName: "Admin User", Password: "Abc123456", Roles: []string{domain.RoleAdmin, domain.RoleSuperUser}},
	{Email: "user@teslo.shop", FullName: "Regular User", Password: "Abc123456", Roles: []string{domain.RoleUser}},
}

type SeedReport struct {
	CreatedRoles    int  `json:"created_roles"`
	CreatedUsers    int  `json:"created_users"`
	CreatedProducts int  `json:"created_products"`
	AdminBound      bool `json:"admin_bound"`
	Noop            bool `json:"noop"`
}

// Seed ensures roles exist and grants the bootstrap admin its role. It
// is safe to run on every startup.
func Seed(db *gorm.DB, bootstrapAdminEmail string) error {
	_, err := SeedRun(db, bootstrapAdminEmail, false)
	return err
}

// SeedRun optionally loads the sample catalog on top of the baseline
// seed. Sample data only lands in an empty catalog.
func SeedRun(db *gorm.DB, bootstrapAdminEmail string, withSampleData bool) (*SeedReport, error) {
	outcome := "success"
	defer func() { observability.RecordSeedRun(context.Background(), outcome) }()

	report := &SeedReport{}

	for _, r := range defaultRoles {
		role := r
		res := db.Where("name = ?", role.Name).FirstOrCreate(&role)
		if res.Error != nil {
			outcome = "error"
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedRoles++
		}
	}

	if withSampleData {
		if err := seedSampleUsers(db, report); err != nil {
			outcome = "error"
			return nil, err
		}
		if err := seedSampleCatalog(db, report); err != nil {
			outcome = "error"
			return nil, err
		}
	}

	email := strings.TrimSpace(strings.ToLower(bootstrapAdminEmail))
	if email != "" {
		bound, err := bindAdminRole(db, email)
		if err != nil {
			outcome = "error"
			return nil, err
		}
		report.AdminBound = bound
	}

	report.Noop = report.CreatedRoles == 0 && report.CreatedUsers == 0 && report.CreatedProducts == 0 && !report.AdminBound
	return report, nil
}

func seedSampleUsers(db *gorm.DB, report *SeedReport) error {
	for _, su := range sampleUsers {
		var count int64
		if err := db.Model(&domain.User{}).Where("email = ?", su.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		hash, err := security.HashPassword(su.Password)
		if err != nil {
			return err
		}
		user := domain.User{Email: su.Email, FullName: su.FullName, PasswordHash: hash, IsActive: true}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		for _, roleName := range su.Roles {
			var role domain.Role
			if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
				return err
			}
			if err := db.Model(&user).Association("Roles").Append(&role); err != nil {
				return err
			}
		}
		report.CreatedUsers++
	}
	return nil
}

func seedSampleCatalog(db *gorm.DB, report *SeedReport) error {
	var count int64
	if err := db.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var owner domain.User
	ownerErr := db.Where("email = ?", sampleUsers[0].Email).First(&owner).Error

	for _, sp := range sampleCatalog {
		product := domain.Product{
			Title:       sp.Title,
			Slug:        sp.Slug,
			Description: sp.Description,
			Price:       sp.Price,
			Stock:       sp.Stock,
			Sizes:       sp.Sizes,
			Gender:      sp.Gender,
			Tags:        sp.Tags,
		}
		if ownerErr == nil {
			ownerID := owner.ID
			product.UserID = &ownerID
		}
		for _, url := range sp.Images {
			product.Images = append(product.Images, domain.ProductImage{URL: url})
		}
		if err := db.Create(&product).Error; err != nil {
			return fmt.Errorf("seed product %q: %w", sp.Title, err)
		}
		report.CreatedProducts++
	}
	return nil
}

func bindAdminRole(db *gorm.DB, email string) (bool, error) {
	var adminRole domain.Role
	if err := db.Where("name = ?", domain.RoleAdmin).First(&adminRole).Error; err != nil {
		return false, err
	}
	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	var count int64
	if err := db.Table("user_roles").Where("user_id = ? AND role_id = ?", user.ID, adminRole.ID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := db.Model(&user).Association("Roles").Append(&adminRole); err != nil {
		return false, fmt.Errorf("assign bootstrap admin role: %w", err)
	}
	return true, nil
}
