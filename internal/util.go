package internal

import (
	"encoding/json"
	"fmt"
	"os"
)

func Pprint(i interface{}) {
	bytes, err := json.MarshalIndent(i, "", "    ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(bytes))
}

type Secrets struct {
	FinnhubApiKey string        `json:"finnhub"`
	ChatGPTApiKey string        `json:"gpt"`
	Alpaca        AlpacaSecrets `json:"alpaca"`
	DbPath        string        `json:"dbPath"`
	Port          int           `json:"port"`
}

type AlpacaSecrets struct {
	ApiKey    string `json:"apiKey"`
	ApiSecret string `json:"apiSecret"`
	Endpoint  string `json:"endpoint"`
}

func LoadSecrets() (*Secrets, error) {
	secretsFile := "/go/src/app/secrets.json"
	if os.Getenv("PAPERTRADE_ENV") == "dev" {
		secretsFile = "secrets-dev.json"
	} else if os.Getenv("PAPERTRADE_ENV") == "test" {
		secretsFile = "secrets-test.json"
	}
	f, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open secrets.json: %w", err)
	}

	secrets := Secrets{}
	err = json.Unmarshal(f, &secrets)
	if err != nil {
		return nil, err
	}

	if secrets.DbPath == "" {
		secrets.DbPath = "papertrade.db"
	}
	if secrets.Port == 0 {
		secrets.Port = 3009
	}

	return &secrets, nil
}

func FloatPointer(f float64) *float64 {
	return &f
}
