package services

import "regexp"

// Fixed heuristic lists used by QueryValidator. They are product decisions:
// tightening or loosening them changes what users may search for.

// sqlKeywordPatterns match keyword and operator combinations.
var sqlKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bselect\b.*\bfrom\b`),
	regexp.MustCompile(`\bunion\b.*\bselect\b`),
	regexp.MustCompile(`\binsert\b.*\binto\b`),
	regexp.MustCompile(`\bupdate\b.*\bset\b`),
	regexp.MustCompile(`\bdelete\b.*\bfrom\b`),
	regexp.MustCompile(`\bdrop\b.*\b(table|database|schema)\b`),
	regexp.MustCompile(`\balter\b.*\btable\b`),
	regexp.MustCompile(`\btruncate\b.*\btable\b`),
	regexp.MustCompile(`\bcreate\b.*\b(table|database|procedure|function)\b`),
	regexp.MustCompile(`\bexec(ute)?\b\s*\(`),
	regexp.MustCompile(`\border\s+by\s+\d+`),
	regexp.MustCompile(`\bgroup\s+by\b.*\bhaving\b`),
}

// sqlFunctionPatterns match functions commonly abused in injections.
var sqlFunctionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(concat|concat_ws|group_concat|char|chr|ascii|hex|unhex|substring|substr|mid)\s*\(`),
	regexp.MustCompile(`\b(sleep|benchmark|pg_sleep|waitfor)\s*\(`),
	regexp.MustCompile(`\b(load_file|into\s+outfile|into\s+dumpfile)\b`),
	regexp.MustCompile(`\b(extractvalue|updatexml|name_const|row_count|found_rows)\s*\(`),
	regexp.MustCompile(`\b(version|database|user|current_user|system_user|schema)\s*\(\s*\)`),
	regexp.MustCompile(`\bcast\s*\(.*\bas\b`),
	regexp.MustCompile(`\bconvert\s*\(.*,`),
}

// sqlVendorPatterns match vendor-specific tables, procedures and variables.
var sqlVendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`xp_cmdshell`),
	regexp.MustCompile(`xp_regread`),
	regexp.MustCompile(`sp_executesql`),
	regexp.MustCompile(`sp_oacreate`),
	regexp.MustCompile(`ctxsys\.`),
	regexp.MustCompile(`utl_http`),
	regexp.MustCompile(`utl_inaddr`),
	regexp.MustCompile(`dbms_pipe`),
	regexp.MustCompile(`dbms_xmlgen`),
	regexp.MustCompile(`information_schema`),
	regexp.MustCompile(`mysql\.user`),
	regexp.MustCompile(`sysobjects`),
	regexp.MustCompile(`syscolumns`),
	regexp.MustCompile(`pg_catalog`),
	regexp.MustCompile(`sqlite_master`),
	regexp.MustCompile(`@@(version|datadir|hostname)`),
	regexp.MustCompile(`waitfor\s+delay`),
}

// sqlBooleanPatterns match tautology-style boolean injections.
var sqlBooleanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`'\s*(or|and)\s*'?\d+'?\s*=\s*'?\d+`),
	regexp.MustCompile(`'\s*(or|and)\s*'[^']*'\s*=\s*'`),
	regexp.MustCompile(`\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`\b(or|and)\s+'[^']*'\s*=\s*'[^']*'`),
	regexp.MustCompile(`\b(or|and)\s+(true|false)\b\s*(--|#|$)`),
	regexp.MustCompile(`'\s*(or|and)\s+\w+\s*(=|like)\s*\w+`),
}

// sqlTerminatorPatterns match comment terminators and stacked queries.
var sqlTerminatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*(select|insert|update|delete|drop|create|alter|exec|execute|shutdown|declare)\b`),
	regexp.MustCompile(`'\s*(--|#)`),
	regexp.MustCompile(`--\s*$`),
	regexp.MustCompile(`'\s*;`),
}

// sqlSpecialChars are counted; more than maxSQLSpecialChars rejects the query.
const (
	sqlSpecialChars    = `'"()|=;%`
	maxSQLSpecialChars = 10
)

// sqlCommentPattern strips /* ... */ comments during normalisation.
var sqlCommentPattern = regexp.MustCompile(`/\*.*?\*/`)

// urlPatterns detect links.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(https?|ftp)://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(com|net|org|info|biz|ru|cn|xyz|top|site|online|click)/`),
}

// emailPattern detects email addresses.
var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

// phoneSeparators are stripped before the consecutive digit check.
// Whitespace is not a separator, so lists of years or sizes stay apart.
var phoneSeparators = regexp.MustCompile(`[\-().+]`)

// phoneDigits is the phone-number proxy: seven or more consecutive digits.
var phoneDigits = regexp.MustCompile(`\d{7,}`)

// Repetition thresholds.
const (
	maxRepeatedChars = 6
	maxRepeatedWords = 4
)

// spamPhrases are matched on word boundaries, case-insensitively.
var spamPhrases = []string{
	// pharma
	"viagra", "cialis", "levitra", "tramadol", "xanax", "valium", "oxycodone",
	"phentermine", "buy pills", "online pharmacy", "no prescription",
	// gambling
	"casino", "poker online", "online betting", "slot machine", "jackpot",
	"sports betting", "free spins",
	// finance scams
	"payday loan", "cash advance", "forex signals", "crypto airdrop",
	"bitcoin doubler", "make money fast", "get rich quick", "work from home",
	"investment opportunity", "guaranteed profit",
	// SEO spam
	"buy backlinks", "seo services", "cheap seo", "increase traffic",
	"rank first", "guest post", "link building",
	// messaging-app solicitation
	"whatsapp", "telegram", "wechat", "contact me on", "dm me",
	// adult
	"porn", "xxx", "escort", "hookup",
}

// spamPhrasePattern is compiled once from spamPhrases.
var spamPhrasePattern = compileWordList(spamPhrases)

// cgiVariables are server-variable names that show up in bot probes.
var cgiVariables = []string{
	"QUERY_STRING", "HTTP_USER_AGENT", "HTTP_HOST", "HTTP_REFERER",
	"HTTP_ACCEPT", "HTTP_COOKIE", "HTTP_X_FORWARDED_FOR", "REMOTE_ADDR",
	"REMOTE_HOST", "REQUEST_URI", "REQUEST_METHOD", "SCRIPT_NAME",
	"SCRIPT_FILENAME", "SERVER_NAME", "SERVER_ADDR", "SERVER_PORT",
	"SERVER_SOFTWARE", "SERVER_PROTOCOL", "DOCUMENT_ROOT", "GATEWAY_INTERFACE",
	"PATH_INFO", "PATH_TRANSLATED", "PHP_SELF",
}

// Gibberish detector thresholds.
const (
	gibberishMinRunes      = 10
	gibberishMinAlnumRatio = 0.5
)

// botSignatures are user-agent substrings of crawlers, scripted HTTP clients,
// headless browsers and automation frameworks. Matched case-insensitively.
var botSignatures = []string{
	// crawlers
	"bot", "crawl", "spider", "slurp", "baiduspider", "yandex", "duckduckgo",
	"facebookexternalhit", "ia_archiver", "semrush", "ahrefs", "mj12",
	"petalbot", "bytespider", "gptbot", "ccbot", "claudebot", "perplexity",
	// scripted clients
	"curl", "wget", "python-requests", "python-urllib", "aiohttp", "httpx",
	"go-http-client", "java/", "okhttp", "apache-httpclient", "libwww-perl",
	"node-fetch", "axios", "guzzle", "ruby", "postman", "insomnia", "httpie",
	"scrapy",
	// headless browsers and automation
	"headless", "phantomjs", "puppeteer", "playwright", "selenium",
	"webdriver", "cypress", "nightmare", "electron",
}

// browserEngines are user-agent markers of real browser engines.
var browserEngines = []string{"mozilla", "applewebkit", "gecko", "chrome", "safari", "firefox", "edg/"}

// minUserAgentLength is the shortest user agent treated as a browser.
const minUserAgentLength = 20

func compileWordList(words []string) *regexp.Regexp {
	expr := `(?i)\b(`
	for i, w := range words {
		if i > 0 {
			expr += "|"
		}
		expr += regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(expr + `)\b`)
}
