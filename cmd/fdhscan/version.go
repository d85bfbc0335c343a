package main

// Version is the fdhscan release version
const Version = "0.1.0"

func getVersionString() string {
	return Version
}
