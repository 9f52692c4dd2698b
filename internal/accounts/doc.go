// Package accounts is the registration and funding subsystem around the
// core engines: bank bootstrap, agent registration, deposits into agent
// vaults, treasury-funded yield accrual, and a development faucet.
//
// Supply only grows through Airdrop. Deposits, withdrawals, fees and yield
// payouts all move existing funds between accounts.
package accounts
