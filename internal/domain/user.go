package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CartItem is a line of customer intent. It does not reserve stock; stock is
// validated at checkout and the quantity is clamped down when the cart is
// displayed.
type CartItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	MiddleName   string     `json:"middleName"`
	LastName     string     `json:"lastName"`
	PhoneNumber  string     `json:"phoneNumber"`
	Address      string     `json:"address"`
	Role         string     `json:"role"`
	Cart         []CartItem `json:"cart"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type UserRepository interface {
	CreateUser(user *User) (*User, error)
	GetUserByID(id int) (*User, error)
	GetUserByUsername(username string) (*User, error)
	ListUsers() ([]User, error)
	UpdateUser(id int, user *User) (*User, error)
	DeleteUser(id int) error
	UsernameExists(username string) (bool, error)

	GetCart(userID int) ([]CartItem, error)
	PutCart(userID int, items []CartItem) error
}
