package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pools (
		chain_id BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		asset_a TEXT NOT NULL,
		asset_b TEXT NOT NULL,
		reserve_a NUMERIC(78, 0) NOT NULL,
		reserve_b NUMERIC(78, 0) NOT NULL,
		total_supply NUMERIC(78, 0) NOT NULL,
		last_seq BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, pool_address)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_shares (
		chain_id BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		account TEXT NOT NULL,
		amount NUMERIC(78, 0) NOT NULL,
		PRIMARY KEY (chain_id, pool_address, account)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_holdings (
		chain_id BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		asset TEXT NOT NULL,
		account TEXT NOT NULL,
		amount NUMERIC(78, 0) NOT NULL,
		PRIMARY KEY (chain_id, pool_address, asset, account)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_allowances (
		chain_id BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		asset TEXT NOT NULL,
		owner TEXT NOT NULL,
		spender TEXT NOT NULL,
		amount NUMERIC(78, 0) NOT NULL,
		PRIMARY KEY (chain_id, pool_address, asset, owner, spender)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_logs (
		chain_id BIGINT NOT NULL,
		block_number BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		log_index BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		topics TEXT[] NOT NULL,
		data TEXT NOT NULL,
		ts BIGINT NOT NULL,
		PRIMARY KEY (chain_id, tx_hash, log_index)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_events (
		chain_id BIGINT NOT NULL,
		block_number BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		log_index BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		event_name TEXT NOT NULL,
		ts BIGINT NOT NULL,
		decoded JSONB NOT NULL,
		pool_meta JSONB NOT NULL,
		PRIMARY KEY (chain_id, tx_hash, log_index)
	)`,
	`CREATE TABLE IF NOT EXISTS op_errors (
		seq BIGINT PRIMARY KEY,
		kind TEXT NOT NULL,
		caller TEXT NOT NULL,
		ts BIGINT NOT NULL,
		error TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_window_metrics (
		chain_id BIGINT NOT NULL,
		pool_address TEXT NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		window_start_ts TIMESTAMPTZ NOT NULL,
		window_end_ts TIMESTAMPTZ NOT NULL,
		swap_count BIGINT NOT NULL,
		add_count BIGINT NOT NULL,
		remove_count BIGINT NOT NULL,
		volume_a NUMERIC(78, 0) NOT NULL,
		volume_b NUMERIC(78, 0) NOT NULL,
		liquidity_minted NUMERIC(78, 0) NOT NULL,
		liquidity_burned NUMERIC(78, 0) NOT NULL,
		reserve_a NUMERIC(78, 0),
		reserve_b NUMERIC(78, 0),
		price_ab NUMERIC,
		tvl_b NUMERIC(78, 0),
		tvl_method TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, pool_address, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS engine_state (
		name TEXT PRIMARY KEY,
		last_processed BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
