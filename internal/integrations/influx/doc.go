// Package influx provides the influxdb external service and a mining
// performance tracker that reads hashrate and reward series from it.
//
// Series layout (defaults, all configurable per tracker):
//
//	miner_hashrate,miner_id=<id> value=<float>,unit="TH/s"
//	miner_rewards,miner_id=<id>  amount=<int satoshi>
package influx
