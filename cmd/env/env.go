package env

// Prefix is the prefix of every environment variable read by the btcrates commands.
// Flags map to variables by upper-casing them, for example -listen is BTCRATES_LISTEN
const Prefix = "BTCRATES"
