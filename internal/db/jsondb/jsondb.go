// Package jsondb keeps the console's durable state in a small JSON file.
// Every write goes straight to disk so the token survives a crash.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/patric-chuzhbe/adminconsole/internal/db/storage"
)

type JSONDB struct {
	fileName string
	mu       sync.Mutex
	Cache    CacheStruct
}

type CacheStruct struct {
	AuthToken string `json:"authToken,omitempty"`
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(db.fileName, &db.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &db, nil
}

func (db *JSONDB) LoadToken(ctx context.Context) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.Cache.AuthToken == "" {
		return "", storage.ErrTokenNotFound
	}

	return db.Cache.AuthToken, nil
}

func (db *JSONDB) SaveToken(ctx context.Context, token string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.AuthToken = token

	return db.flush()
}

func (db *JSONDB) RemoveToken(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Cache.AuthToken = ""

	return db.flush()
}

func (db *JSONDB) flush() error {
	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.flush()
}
