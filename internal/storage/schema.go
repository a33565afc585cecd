package storage

const schemaSQL = `
-- One row per visited page; under page-count depth each level holds one page
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    level INTEGER NOT NULL,
    url TEXT UNIQUE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_level ON pages(level);

-- Links recorded on each page, in discovery order.
-- Duplicates are allowed when suppression is off.
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    level INTEGER NOT NULL,
    position INTEGER NOT NULL,
    source_url TEXT NOT NULL,
    target_url TEXT NOT NULL,
    UNIQUE(level, position)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_url);

-- Pages that were admitted but could not be fetched or parsed
CREATE TABLE IF NOT EXISTS crawl_failures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    reason TEXT NOT NULL,
    occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_failures_url ON crawl_failures(url);

-- Links per level that point at a visited page (same figures as results.txt)
CREATE VIEW IF NOT EXISTS level_summary AS
SELECT
    p.level,
    p.url,
    COUNT(l.id) AS links_total,
    COUNT(v.id) AS links_to_visited
FROM pages p
LEFT JOIN links l ON l.level = p.level
LEFT JOIN pages v ON v.url = l.target_url
GROUP BY p.level, p.url;

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
