package cmd

import "errors"

var (
	ErrInvalidArgs       = errors.New("invalid args")
	ErrMissingSubcommand = errors.New("must specify a subcommand")
	ErrMissingSecret     = errors.New("signing secret is empty")
	ErrMissingDatabase   = errors.New("database url is empty")
)
