package transport

import "github.com/Skotchmaster/shops_api/internal/models"

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=1,max=80"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

type CreateShopRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

type CreateProductRequest struct {
	Name   string   `json:"name"    validate:"required,max=80"`
	Price  *float64 `json:"price"   validate:"required,gte=0"`
	ShopID uint     `json:"shop_id" validate:"required"`
}

// PutProductRequest creates the product when it does not exist yet and ShopID is set.
type PutProductRequest struct {
	Name   string   `json:"name"    validate:"required,max=80"`
	Price  *float64 `json:"price"   validate:"required,gte=0"`
	ShopID uint     `json:"shop_id"`
}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PlainShop struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type PlainProduct struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type PlainTag struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ShopResponse struct {
	PlainShop
	Products []PlainProduct `json:"products"`
	Tags     []PlainTag     `json:"tags"`
}

type ProductResponse struct {
	PlainProduct
	Shop *PlainShop `json:"shop"`
	Tags []PlainTag `json:"tags"`
}

type TagResponse struct {
	PlainTag
	Shop     *PlainShop     `json:"shop"`
	Products []PlainProduct `json:"products"`
}

type TagAndProductResponse struct {
	Message string          `json:"message"`
	Product ProductResponse `json:"product"`
	Tag     TagResponse     `json:"tag"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type ProductPage struct {
	Data []ProductResponse `json:"data"`
	Meta PageMeta          `json:"meta"`
}

func NewPageMeta(page, offset, limit int, total int64) PageMeta {
	return PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}

func User(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username}
}

func plainShop(s *models.Shop) *PlainShop {
	if s == nil {
		return nil
	}
	return &PlainShop{ID: s.ID, Name: s.Name}
}

func plainProducts(ps []models.Product) []PlainProduct {
	out := make([]PlainProduct, len(ps))
	for i, p := range ps {
		out[i] = PlainProduct{ID: p.ID, Name: p.Name, Price: p.Price}
	}
	return out
}

func plainTags(ts []models.Tag) []PlainTag {
	out := make([]PlainTag, len(ts))
	for i, t := range ts {
		out[i] = PlainTag{ID: t.ID, Name: t.Name}
	}
	return out
}

func Shop(s *models.Shop) ShopResponse {
	return ShopResponse{
		PlainShop: *plainShop(s),
		Products:  plainProducts(s.Products),
		Tags:      plainTags(s.Tags),
	}
}

func Shops(ss []models.Shop) []ShopResponse {
	out := make([]ShopResponse, len(ss))
	for i := range ss {
		out[i] = Shop(&ss[i])
	}
	return out
}

func Product(p *models.Product) ProductResponse {
	return ProductResponse{
		PlainProduct: PlainProduct{ID: p.ID, Name: p.Name, Price: p.Price},
		Shop:         plainShop(p.Shop),
		Tags:         plainTags(p.Tags),
	}
}

func Products(ps []models.Product) []ProductResponse {
	out := make([]ProductResponse, len(ps))
	for i := range ps {
		out[i] = Product(&ps[i])
	}
	return out
}

func Tag(t *models.Tag) TagResponse {
	return TagResponse{
		PlainTag: PlainTag{ID: t.ID, Name: t.Name},
		Shop:     plainShop(t.Shop),
		Products: plainProducts(t.Products),
	}
}

func Tags(ts []models.Tag) []TagResponse {
	out := make([]TagResponse, len(ts))
	for i := range ts {
		out[i] = Tag(&ts[i])
	}
	return out
}
