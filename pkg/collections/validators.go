package collections

type CreateCollectionPayload struct {
	Name string `form:"name" json:"name" mod:"trim" validate:"required,max=128"`
}

type AddBookPayload struct {
	CollectionID int `form:"collection_id" json:"collection_id" validate:"required,min=1"`
}
