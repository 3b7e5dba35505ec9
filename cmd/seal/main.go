// Command seal encrypts plaintext artifacts into .aes containers readable by
// the dashboard. Each input file <name> is written next to it as <name>.aes.
package main

import (
	"flag"
	"fmt"
	"os"

	"epicdash/internal/config"
	"epicdash/internal/storage"

	log "github.com/sirupsen/logrus"
)

func main() {
	compress := flag.Bool("gzip", false, "gzip the plaintext before encrypting")
	remove := flag.Bool("rm", false, "delete each plaintext file after sealing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-gzip] [-rm] file...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	config.LoadEnv()
	cfg := config.Load()
	cfg.SetupLogging()

	password, err := cfg.Secret()
	if err != nil {
		log.Fatalf("Set ARTIFACT_PW: %v", err)
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := sealFile(path, password, *compress); err != nil {
			log.Errorf("[Seal] %s: %v", path, err)
			failed++
			continue
		}
		if *remove {
			if err := os.Remove(path); err != nil {
				log.Warnf("[Seal] Failed to remove %s: %v", path, err)
			}
		}
		log.Printf("[Seal] %s.aes", path)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func sealFile(path, password string, compress bool) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".aes")
	if err != nil {
		return err
	}
	if err := storage.Seal(in, out, password, compress); err != nil {
		out.Close()
		os.Remove(path + ".aes")
		return err
	}
	return out.Close()
}
