package main

import (
	log "github.com/sirupsen/logrus"

	"printwatch/internal/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		log.Fatal(err)
	}
}
