package ai

// swapsSchemaDescription describes the ClickHouse schema used for NL→SQL
// prompting. Keep it in sync with the actual table definition in init.sql.
const swapsSchemaDescription = `
Database: dex
Table: swaps

Columns:
  - tx_hash      String        -- Transaction hash (unique id)
  - user         String        -- Address of the trader
  - token_in     String        -- Symbol of token sold by the user (MTK or sUSDC)
  - token_out    String        -- Symbol of token bought by the user
  - amount_in    Float64       -- Amount of token_in, display units
  - amount_out   Float64       -- Amount of token_out, display units
  - block_number UInt64        -- Block the swap landed in
  - log_index    UInt32        -- Event position inside the block
  - timestamp    DateTime      -- Block time of the swap (UTC)

Notes:
  - The pool trades a single pair, MTK/sUSDC.
  - For volume calculations SUM(amount_in) over token_in = 'MTK' gives MTK-side volume.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
  - lower(user) identifies a trader; addresses differ only in letter case.
`
