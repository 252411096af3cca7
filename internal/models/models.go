package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null;size:80"  json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type Shop struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string    `gorm:"unique;not null;size:80"  json:"name"`
	Products []Product `gorm:"foreignKey:ShopID"        json:"-"`
	Tags     []Tag     `gorm:"foreignKey:ShopID"        json:"-"`
}

type Product struct {
	ID     uint    `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name   string  `gorm:"not null;size:80"            json:"name"`
	Price  float64 `gorm:"not null"                    json:"price"`
	ShopID uint    `gorm:"index;not null"              json:"shop_id"`
	Shop   *Shop   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tags   []Tag   `gorm:"many2many:products_tags"     json:"-"`
}

// Tag names are unique within a shop.
type Tag struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Name     string    `gorm:"not null;size:80;uniqueIndex:idx_shop_tag" json:"name"`
	ShopID   uint      `gorm:"not null;uniqueIndex:idx_shop_tag"         json:"shop_id"`
	Shop     *Shop     `gorm:"constraint:OnDelete:CASCADE"               json:"-"`
	Products []Product `gorm:"many2many:products_tags"                   json:"-"`
}

func All() []any {
	return []any{&User{}, &Shop{}, &Product{}, &Tag{}}
}
