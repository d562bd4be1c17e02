package sequencer

import (
	"gfvledger/internal/ledger"
	"gfvledger/internal/token"
)

type handler func(caller ledger.Address, args Args) error

func (s *Sequencer) routes() map[string]map[string]handler {
	d := s.deployment

	return map[string]map[string]handler{
		ContractPayment: fungibleRoutes(d.Payment),
		ContractReward:  fungibleRoutes(d.Reward),
		ContractAsset: {
			"init": func(caller ledger.Address, _ Args) error {
				return d.Asset.Init(caller)
			},
			"registerUnit": func(caller ledger.Address, args Args) error {
				id, err := args.Uint64("unitId")
				if err != nil {
					return err
				}
				price, err := args.Amount("sharePrice")
				if err != nil {
					return err
				}
				return d.Asset.RegisterUnit(caller, id, price, args["name"])
			},
			"updateSharePrice": func(caller ledger.Address, args Args) error {
				id, err := args.Uint64("unitId")
				if err != nil {
					return err
				}
				price, err := args.Amount("sharePrice")
				if err != nil {
					return err
				}
				return d.Asset.UpdateSharePrice(caller, id, price)
			},
			"setApprovalForAll": func(caller ledger.Address, args Args) error {
				operator, err := args.Address("operator")
				if err != nil {
					return err
				}
				approved, err := args.Bool("approved")
				if err != nil {
					return err
				}
				return d.Asset.SetApprovalForAll(caller, operator, approved)
			},
			"safeTransferFrom": func(caller ledger.Address, args Args) error {
				from, to, unit, amount, err := unitTransfer(args)
				if err != nil {
					return err
				}
				return d.Asset.SafeTransferFrom(caller, from, to, unit, amount)
			},
			"mint": func(caller ledger.Address, args Args) error {
				to, unit, amount, err := unitMint(args)
				if err != nil {
					return err
				}
				return d.Asset.Mint(caller, to, unit, amount)
			},
			"mintEmergency": func(caller ledger.Address, args Args) error {
				to, unit, amount, err := unitMint(args)
				if err != nil {
					return err
				}
				return d.Asset.MintEmergency(caller, to, unit, amount)
			},
			"authorize": func(caller ledger.Address, args Args) error {
				contract, err := args.Address("address")
				if err != nil {
					return err
				}
				return d.Asset.Authorize(caller, contract)
			},
			"revoke": func(caller ledger.Address, args Args) error {
				contract, err := args.Address("address")
				if err != nil {
					return err
				}
				return d.Asset.Revoke(caller, contract)
			},
		},
		ContractFundraiser: {
			"startFundraising": func(caller ledger.Address, _ Args) error {
				return d.Fundraiser.StartFundraising(caller)
			},
			"endFundraiser": func(caller ledger.Address, _ Args) error {
				return d.Fundraiser.EndFundraiser(caller)
			},
			"startMinting": func(caller ledger.Address, _ Args) error {
				return d.Fundraiser.StartMinting(caller)
			},
			"addToWhitelist": func(caller ledger.Address, args Args) error {
				address, err := args.Address("address")
				if err != nil {
					return err
				}
				return d.Fundraiser.AddToWhitelist(caller, address)
			},
			"removeFromWhitelist": func(caller ledger.Address, args Args) error {
				address, err := args.Address("address")
				if err != nil {
					return err
				}
				return d.Fundraiser.RemoveFromWhitelist(caller, address)
			},
			"buyTicket": func(caller ledger.Address, args Args) error {
				count, err := args.Uint64("count")
				if err != nil {
					return err
				}
				return d.Fundraiser.BuyTicket(caller, count)
			},
			"requestRefund": func(caller ledger.Address, _ Args) error {
				return d.Fundraiser.RequestRefund(caller)
			},
			"claimTokens": func(caller ledger.Address, _ Args) error {
				return d.Fundraiser.ClaimTokens(caller)
			},
			"receive": func(caller ledger.Address, args Args) error {
				amount, err := args.Amount("amount")
				if err != nil {
					return err
				}
				return d.Fundraiser.Receive(caller, amount)
			},
		},
		ContractStaking: {
			"stake": func(caller ledger.Address, args Args) error {
				amount, err := args.Uint64("amount")
				if err != nil {
					return err
				}
				return d.Staking.Stake(caller, amount)
			},
			"unstake": func(caller ledger.Address, args Args) error {
				amount, err := args.Uint64("amount")
				if err != nil {
					return err
				}
				return d.Staking.Unstake(caller, amount)
			},
			"claimRewards": func(caller ledger.Address, _ Args) error {
				return d.Staking.ClaimRewards(caller)
			},
			"updateRewardsRatePerSecond": func(caller ledger.Address, args Args) error {
				rate, err := args.Amount("rate")
				if err != nil {
					return err
				}
				return d.Staking.UpdateRewardsRatePerSecond(caller, rate)
			},
			"receive": func(caller ledger.Address, args Args) error {
				amount, err := args.Amount("amount")
				if err != nil {
					return err
				}
				return d.Staking.Receive(caller, amount)
			},
		},
	}
}

func fungibleRoutes(t *token.Fungible) map[string]handler {
	return map[string]handler{
		"transfer": func(caller ledger.Address, args Args) error {
			to, err := args.Address("to")
			if err != nil {
				return err
			}
			amount, err := args.Amount("amount")
			if err != nil {
				return err
			}
			return t.Transfer(caller, to, amount)
		},
		"approve": func(caller ledger.Address, args Args) error {
			spender, err := args.Address("spender")
			if err != nil {
				return err
			}
			amount, err := args.Amount("amount")
			if err != nil {
				return err
			}
			return t.Approve(caller, spender, amount)
		},
		"transferFrom": func(caller ledger.Address, args Args) error {
			from, err := args.Address("from")
			if err != nil {
				return err
			}
			to, err := args.Address("to")
			if err != nil {
				return err
			}
			amount, err := args.Amount("amount")
			if err != nil {
				return err
			}
			return t.TransferFrom(caller, from, to, amount)
		},
		"mint": func(caller ledger.Address, args Args) error {
			to, err := args.Address("to")
			if err != nil {
				return err
			}
			amount, err := args.Amount("amount")
			if err != nil {
				return err
			}
			return t.Mint(caller, to, amount)
		},
		"addAdminRights": func(caller ledger.Address, args Args) error {
			address, err := args.Address("address")
			if err != nil {
				return err
			}
			return t.AddAdmin(caller, address)
		},
		"revokeAdminRights": func(caller ledger.Address, args Args) error {
			address, err := args.Address("address")
			if err != nil {
				return err
			}
			return t.RevokeAdmin(caller, address)
		},
	}
}

func unitTransfer(args Args) (from, to ledger.Address, unit, amount uint64, err error) {
	if from, err = args.Address("from"); err != nil {
		return
	}
	if to, err = args.Address("to"); err != nil {
		return
	}
	unit, amount, err = unitAmount(args)
	return
}

func unitMint(args Args) (to ledger.Address, unit, amount uint64, err error) {
	if to, err = args.Address("to"); err != nil {
		return
	}
	unit, amount, err = unitAmount(args)
	return
}

func unitAmount(args Args) (unit, amount uint64, err error) {
	if unit, err = args.Uint64("unitId"); err != nil {
		return
	}
	amount, err = args.Uint64("amount")
	return
}
