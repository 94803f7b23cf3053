package main

import (
	"log"

	"papertrade/cmd"
)

func main() {
	apiHandler, secrets, err := cmd.InitializeDependencies()
	if err != nil {
		log.Fatal(err)
	}

	if err := cmd.Bootstrap(apiHandler); err != nil {
		log.Fatal(err)
	}

	err = apiHandler.StartApi(secrets.Port)
	if err != nil {
		log.Fatal(err)
	}
}
