package migrate

import (
	"gatherly/internal/post"
	"gatherly/internal/shared/db"
	"gatherly/internal/user"
)

func AutoMigrateAll(store *db.Store) error {
	return store.Base.AutoMigrate(
		&user.User{},
		&post.Post{},
		&post.Like{},
		&post.Bookmark{},
	)
}
