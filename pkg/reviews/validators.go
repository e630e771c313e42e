package reviews

// CreateReviewPayload is the body for posting a review. Rating is a pointer
// so that an explicit 0 ("terrible") still passes required.
type CreateReviewPayload struct {
	Text   string `form:"text" json:"text" mod:"trim" validate:"required"`
	Rating *int   `form:"rating" json:"rating" validate:"required,min=0,max=5"`
}
