package a

import "session"

var current *session.Store // want `package-level session store current`

var byValue session.Store // want `package-level session store byValue`

var (
	fromCall = session.New() // want `package-level session store fromCall`
	counter  = 1
)

var _ = session.New()

type holder struct {
	store *session.Store
}

func use() {
	var local *session.Store
	_ = local
	_ = holder{}
	_ = counter
}
