package utils

import (
	"os"
	"os/user"
)

// HomeDir returns the user's home directory. HOME wins when it's set.
func HomeDir() string {
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	currentUser, err := user.Current()
	if err != nil {
		panic(err)
	}
	return currentUser.HomeDir
}
