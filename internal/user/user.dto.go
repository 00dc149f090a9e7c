package user

type CreateUserRequest struct {
	ClerkID   string `json:"clerkId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	FirstName string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  string `json:"lastName,omitempty" validate:"omitempty,max=50"`
	ImageURL  string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}
