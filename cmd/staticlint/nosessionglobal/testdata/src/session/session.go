package session

type Store struct {
	token string
}

func New() *Store {
	return &Store{}
}
