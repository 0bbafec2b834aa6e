// Package config loads, normalizes, and validates deckhand configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: the serial link, deck timing and retry budgets, the external
// player, session policy, the disc cache, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policies, and clear validation errors.
package config
