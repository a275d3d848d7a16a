package command

import "strconv"

// familyChecks holds the option-shape/integer refinements the flat arity
// table in command.go can't express: token-level SET/ZADD flags, even-pair
// counts, subcommand whitelists. Grounded on spec.md §6's per-command
// argument grammar and §7's Syntax/Integer error classes.
var familyChecks = map[string]func([][]byte) error{
	"SET":           validateSet,
	"MSET":          validateEvenPairs,
	"MSETNX":        validateEvenPairs,
	"HSET":          validateHSet,
	"EXPIRE":        validateTrailingInt(1),
	"PEXPIRE":       validateTrailingInt(1),
	"INCRBY":        validateTrailingInt(1),
	"DECRBY":        validateTrailingInt(1),
	"LPOP":          validateOptionalCount,
	"RPOP":          validateOptionalCount,
	"ZADD":          validateZAdd,
	"ZRANGE":        validateZRange,
	"ZREVRANGE":     validateZRange,
	"ZRANGEBYSCORE": validateZRangeByScore,
	"SCAN":          validateScanOpts(1, true),
	"SSCAN":         validateScanOpts(2, false),
	"HSCAN":         validateScanOpts(2, false),
	"ZSCAN":         validateScanOpts(2, false),
	"CLIENT":        validateClient,
	"CONFIG":        validateSubcommand("GET", "SET"),
	"PUBSUB":        validateSubcommand("CHANNELS", "NUMSUB", "NUMPAT", "SHARDCHANNELS", "SHARDNUMSUB"),
	"SLOWLOG":       validateSubcommand("GET", "LEN", "RESET"),
	"SCRIPT":        validateSubcommand("LOAD", "EXISTS", "FLUSH"),
}

func isInt(b []byte) bool {
	_, err := strconv.ParseInt(string(b), 10, 64)
	return err == nil
}

func upper(b []byte) string {
	s := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		s[i] = c
	}
	return string(s)
}

// validateTrailingInt returns a check requiring args[idx] to parse as an
// integer (used for EXPIRE/PEXPIRE seconds, INCRBY/DECRBY deltas).
func validateTrailingInt(idx int) func([][]byte) error {
	return func(args [][]byte) error {
		if idx >= len(args) || !isInt(args[idx]) {
			return ErrNotInteger
		}
		return nil
	}
}

func validateOptionalCount(args [][]byte) error {
	if len(args) == 2 && !isInt(args[1]) {
		return ErrNotInteger
	}
	return nil
}

func validateEvenPairs(args [][]byte) error {
	if len(args)%2 != 0 {
		return ErrSyntax
	}
	return nil
}

// validateHSet requires key + one-or-more complete field/value pairs.
func validateHSet(args [][]byte) error {
	if (len(args)-1)%2 != 0 {
		return ErrSyntax
	}
	return nil
}

// validateSet checks the SET key value [EX s|PX ms|NX|XX|KEEPTTL|GET]*
// option tail.
func validateSet(args [][]byte) error {
	i := 2
	for i < len(args) {
		switch upper(args[i]) {
		case "NX", "XX", "KEEPTTL", "GET":
			i++
		case "EX", "PX":
			if i+1 >= len(args) {
				return ErrSyntax
			}
			if !isInt(args[i+1]) {
				return ErrNotInteger
			}
			i += 2
		default:
			return ErrSyntax
		}
	}
	return nil
}

// validateZAdd checks ZADD key [NX|XX] [GT|LT] [CH] [INCR] score member
// [score member ...], requiring at least one complete pair after the
// recognized leading flags.
func validateZAdd(args [][]byte) error {
	i := 1
	for i < len(args) {
		switch upper(args[i]) {
		case "NX", "XX", "GT", "LT", "CH", "INCR":
			i++
		default:
			goto pairs
		}
	}
pairs:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return ErrSyntax
	}
	for j := 0; j < len(rest); j += 2 {
		if !isFloatToken(rest[j]) {
			return ErrNotInteger
		}
	}
	return nil
}

func isFloatToken(b []byte) bool {
	s := upper(b)
	if s == "INF" || s == "+INF" || s == "-INF" {
		return true
	}
	_, err := strconv.ParseFloat(string(b), 64)
	return err == nil
}

// validateZRange checks the optional trailing WITHSCORES token shared by
// ZRANGE/ZREVRANGE.
func validateZRange(args [][]byte) error {
	if len(args) == 4 && upper(args[3]) != "WITHSCORES" {
		return ErrSyntax
	}
	return nil
}

// validateZRangeByScore checks key min max [WITHSCORES] [LIMIT off cnt].
func validateZRangeByScore(args [][]byte) error {
	i := 3
	for i < len(args) {
		switch upper(args[i]) {
		case "WITHSCORES":
			i++
		case "LIMIT":
			if i+2 >= len(args) {
				return ErrSyntax
			}
			if !isInt(args[i+1]) || !isInt(args[i+2]) {
				return ErrNotInteger
			}
			i += 3
		default:
			return ErrSyntax
		}
	}
	return nil
}

// validateScanOpts builds the check for SCAN/SSCAN/HSCAN/ZSCAN's shared
// [MATCH pattern] [COUNT n] [TYPE kind] option tail, starting after the
// command's required positional args (cursor alone for SCAN; key+cursor
// for the collection scans). Keyspace SCAN also allows TYPE; collection
// scans do not.
func validateScanOpts(start int, allowType bool) func([][]byte) error {
	return func(args [][]byte) error {
		i := start
		for i < len(args) {
			switch upper(args[i]) {
			case "MATCH":
				if i+1 >= len(args) {
					return ErrSyntax
				}
				i += 2
			case "COUNT":
				if i+1 >= len(args) {
					return ErrSyntax
				}
				if !isInt(args[i+1]) {
					return ErrNotInteger
				}
				i += 2
			case "TYPE":
				if !allowType || i+1 >= len(args) {
					return ErrSyntax
				}
				i += 2
			default:
				return ErrSyntax
			}
		}
		return nil
	}
}

func validateClient(args [][]byte) error {
	switch upper(args[0]) {
	case "ID", "GETNAME", "LIST", "UNPAUSE":
		if len(args) != 1 {
			return arityError("CLIENT")
		}
	case "SETNAME":
		if len(args) != 2 {
			return arityError("CLIENT")
		}
	case "PAUSE":
		if len(args) != 2 {
			return arityError("CLIENT")
		}
		if !isInt(args[1]) {
			return ErrNotInteger
		}
	default:
		return ErrSyntax
	}
	return nil
}

func validateSubcommand(allowed ...string) func([][]byte) error {
	return func(args [][]byte) error {
		got := upper(args[0])
		for _, a := range allowed {
			if got == a {
				return nil
			}
		}
		return ErrSyntax
	}
}
