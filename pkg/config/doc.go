/*
Package config loads the bridge configuration.

Files ending in .toml are decoded with BurntSushi/toml; anything else is
read as YAML. Keys left out of the file keep the values from Default, and
the merged result is validated before it is returned.

Example drbridge.yaml:

	eth_client_url: http://127.0.0.1:8545
	wrb_contract_addr: 0x8c49cafc4542d9ea9107d4e48412acedb2d87e2a
	eth_account: 0x0000000000000000000000000000000000000001
	eth_new_dr_polling_rate_ms: 1000
	eth_call_timeout_ms: 10000
	storage:
	  driver: bolt
	  data_dir: ./data
	http_addr: 127.0.0.1:9190
	log:
	  level: info
*/
package config
