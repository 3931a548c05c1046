package config

// DefaultConfigYAML is the attune.yaml scaffold written by `attune init`.
const DefaultConfigYAML = `name: attune
version: "1.0"

server:
  host: 127.0.0.1
  port: 8135
  heartbeat: 15s

provider:
  name: anthropic
  model: claude-sonnet-4-20250514
  api_key: ${env.ANTHROPIC_API_KEY}
  max_tokens: 4096

embedder:
  provider: openai
  model: text-embedding-3-small
  api_key: ${env.OPENAI_API_KEY}
  dimensions: 1536

memory:
  driver: sqlite
  top_k: 3
  persistent_categories: [identity, boundaries, communication]
  capture_window: 6

store:
  driver: sqlite
  path: .attune/attune.db

defaults:
  timeout: 2m
  max_retries: 3

logging:
  level: info
  format: text

metrics:
  enabled: false
  path: .attune/metrics.jsonl
`

// DefaultEnvFile is the .env scaffold written by `attune init`.
const DefaultEnvFile = `# API credentials for attune. Loaded by the serve command.
ANTHROPIC_API_KEY=
OPENAI_API_KEY=
`

// GitignoreEntries are appended to .gitignore by `attune init`.
const GitignoreEntries = `.attune/
.env
`
